package email

import "fmt"

// Config holds email delivery settings. Without Postmark tokens messages are
// written to DevOutputDir instead of being sent.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
	DevOutputDir         string `env:"EMAIL_DEV_OUTPUT_DIR" envDefault:"./tmp/emails"`
}

// NewSender returns a Postmark sender when tokens are configured,
// otherwise a DevSender writing to DevOutputDir.
func NewSender(cfg Config) (EmailSender, error) {
	if cfg.PostmarkServerToken == "" && cfg.PostmarkAccountToken == "" {
		return NewDevSender(cfg.DevOutputDir), nil
	}
	return NewPostmarkClient(cfg)
}

func (c Config) validatePostmark() error {
	required := []struct{ name, value string }{
		{"POSTMARK_SERVER_TOKEN", c.PostmarkServerToken},
		{"POSTMARK_ACCOUNT_TOKEN", c.PostmarkAccountToken},
		{"SENDER_EMAIL", c.SenderEmail},
		{"SUPPORT_EMAIL", c.SupportEmail},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidConfig, f.name)
		}
	}
	for _, addr := range []string{c.SenderEmail, c.SupportEmail} {
		if !emailRegex.MatchString(addr) {
			return fmt.Errorf("%w: %q is not a valid address", ErrInvalidConfig, addr)
		}
	}
	return nil
}
