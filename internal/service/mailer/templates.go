package mailer

import (
	"context"
	"fmt"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"
)

// Notifier wraps the SMTP sender with the messages this system sends.
type Notifier struct {
	sender  *Sender
	baseURL string
}

func NewNotifier(sender *Sender, baseURL string) *Notifier {
	return &Notifier{sender: sender, baseURL: baseURL}
}

// SendWelcome mails a newly registered member their membership number and
// temporary password.
func (n *Notifier) SendWelcome(ctx context.Context, m domain.MemberRecord, tempPassword string) error {
	subject := "Welcome to Membership App - Your Account Details"

	text := fmt.Sprintf(`Welcome %s!

Your membership account has been successfully created. Here are your account details:

Membership Number: %s
Name: %s
Email: %s
Temporary Password: %s

Please log in to the system and change your password as soon as possible.

Your account has also been created in our Learning Management System (Moodle) with the same credentials.

If you have any questions, please don't hesitate to contact us.

Best regards,
Membership App Team`, m.LatinName, m.MembershipNumber, m.LatinName, m.Email, tempPassword)

	html := fmt.Sprintf(`<html><body>
<h2>Welcome to Membership App!</h2>
<p>Dear %s,</p>
<p>Your membership account has been successfully created. Here are your account details:</p>
<ul>
<li><strong>Membership Number:</strong> %s</li>
<li><strong>Name:</strong> %s</li>
<li><strong>Email:</strong> %s</li>
<li><strong>Temporary Password:</strong> %s</li>
</ul>
<p><strong>Please log in to the system and change your password as soon as possible.</strong></p>
<p>Your account has also been created in our Learning Management System (Moodle) with the same credentials.</p>
<p>Best regards,<br>Membership App Team</p>
</body></html>`, m.LatinName, m.MembershipNumber, m.LatinName, m.Email, tempPassword)

	return n.sender.Send(ctx, m.Email, "", subject, text, html)
}

// SendDuplicateNotice tells an applicant their submission matched an existing
// member. cc may carry the existing member's email when the two differ.
func (n *Notifier) SendDuplicateNotice(ctx context.Context, m domain.MemberRecord, cc string) error {
	subject := "Membership Registration - Already Registered"

	text := fmt.Sprintf(`Hello %s,

We received your membership registration, but our records show a membership
already exists with these contact details. No new account was created.

If you have lost access to your account, you can reset your password from the
login page. If you believe this is a mistake, please contact us.

Best regards,
Membership App Team`, m.LatinName)

	return n.sender.Send(ctx, m.Email, cc, subject, text, "")
}

// SendPasswordReset mails a reset link built from the signed token.
func (n *Notifier) SendPasswordReset(ctx context.Context, to, resetToken string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", n.baseURL, resetToken)
	subject := "Password Reset Request - Membership App"

	text := fmt.Sprintf(`Hello,

You have requested to reset your password for the Membership App.

Please click on the following link to reset your password:
%s

This link will expire in 1 hour for security reasons.

If you did not request this password reset, please ignore this email.

Best regards,
Membership App Team`, resetURL)

	html := fmt.Sprintf(`<html><body>
<h2>Password Reset Request</h2>
<p>Hello,</p>
<p>You have requested to reset your password for the Membership App.</p>
<p><a href="%s">Reset Password</a></p>
<p><strong>This link will expire in 1 hour for security reasons.</strong></p>
<p>If you did not request this password reset, please ignore this email.</p>
<p>Best regards,<br>Membership App Team</p>
</body></html>`, resetURL)

	return n.sender.Send(ctx, to, "", subject, text, html)
}
