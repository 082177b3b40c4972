package smtp

import (
	"context"
	"fmt"
)

// OTPNotifier mails email-change codes through a Mailer.
type OTPNotifier struct {
	mailer            Mailer
	expirationMinutes int
}

func NewOTPNotifier(m Mailer, expirationMinutes int) *OTPNotifier {
	return &OTPNotifier{mailer: m, expirationMinutes: expirationMinutes}
}

func (n *OTPNotifier) Notify(ctx context.Context, email, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body := fmt.Sprintf(
		"Your verification code is %s.\r\n\r\nEnter it to confirm this address for your account. The code expires in %d minutes.\r\nIf you did not request an email change, ignore this message.",
		code, n.expirationMinutes,
	)
	if err := n.mailer.SendEmail(email, "Confirm your new email address", body); err != nil {
		return fmt.Errorf("send email change code: %w", err)
	}
	return nil
}
