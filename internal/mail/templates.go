package mail

import (
	"bytes"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"

	"cardauth/internal/dto"
)

type templateData struct {
	Name string
	Link string
}

var (
	verifyHTML = htmltemplate.Must(htmltemplate.New("verify").Parse(
		`<p>Hi {{.Name}},</p>
<p>Confirm your email address to finish setting up your card.</p>
<p><a href="{{.Link}}">Verify email</a></p>
<p>The link expires in 7 days. If you did not sign up, ignore this message.</p>`))
	verifyText = texttemplate.Must(texttemplate.New("verify").Parse(
		"Hi {{.Name}},\n\nConfirm your email address:\n{{.Link}}\n\nThe link expires in 7 days. If you did not sign up, ignore this message.\n"))

	resetHTML = htmltemplate.Must(htmltemplate.New("reset").Parse(
		`<p>Hi {{.Name}},</p>
<p>Someone asked to reset the password for your account.</p>
<p><a href="{{.Link}}">Choose a new password</a></p>
<p>The link expires in one hour. If it was not you, ignore this message.</p>`))
	resetText = texttemplate.Must(texttemplate.New("reset").Parse(
		"Hi {{.Name}},\n\nReset your password:\n{{.Link}}\n\nThe link expires in one hour. If it was not you, ignore this message.\n"))
)

// VerificationEmail builds the message carrying an email verification link.
func VerificationEmail(baseURL, to, name, token string) (dto.EmailMessage, error) {
	return render(to, "Verify your email", verifyHTML, verifyText, templateData{
		Name: displayName(name, to),
		Link: link(baseURL, "/verify-email", token),
	})
}

// PasswordResetEmail builds the message carrying a password reset link.
func PasswordResetEmail(baseURL, to, name, token string) (dto.EmailMessage, error) {
	return render(to, "Reset your password", resetHTML, resetText, templateData{
		Name: displayName(name, to),
		Link: link(baseURL, "/reset-password", token),
	})
}

func render(to, subject string, html *htmltemplate.Template, text *texttemplate.Template, data templateData) (dto.EmailMessage, error) {
	var hb, tb bytes.Buffer
	if err := html.Execute(&hb, data); err != nil {
		return dto.EmailMessage{}, err
	}
	if err := text.Execute(&tb, data); err != nil {
		return dto.EmailMessage{}, err
	}
	return dto.EmailMessage{To: to, Subject: subject, HTML: hb.String(), Text: tb.String()}, nil
}

func link(baseURL, path, token string) string {
	return strings.TrimRight(baseURL, "/") + path + "?token=" + url.QueryEscape(token)
}

func displayName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return "there"
}
