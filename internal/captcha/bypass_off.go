//go:build !bypass_captcha

package captcha

// BypassBuild is true only in binaries built with -tags bypass_captcha.
const BypassBuild = false
