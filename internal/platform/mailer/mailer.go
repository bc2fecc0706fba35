package mailer

// Service is the outbound email collaborator: a recipient plus a templated
// message, success or failure back. Higher layers decide what a failed send
// means (the password-reset flow rolls back its token on failure).
type Service interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
	SendWelcome(toEmail, toName, accountURL string) error
	SendPasswordReset(toEmail, toName, resetURL string) error
}
