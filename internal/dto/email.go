package dto

// EmailMessage is a transactional email. From may be left empty to use the
// sender's configured default.
type EmailMessage struct {
	To      string
	From    string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
}
