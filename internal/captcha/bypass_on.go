//go:build bypass_captcha

package captcha

const BypassBuild = true
