package internal

const (
	COOKIE_ACCESS_TOKEN_NAME = "campusstay_access_token"
	COOKIE_REDIRECT_NAME     = "campusstay_redirect"
)
