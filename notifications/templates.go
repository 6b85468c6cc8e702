package notifications

import (
	"fmt"
	"html"
)

type Email struct {
	Subject string
	Body    string
}

func WelcomeEmail(name string) Email {
	return Email{
		Subject: "Welcome to Aiqda!",
		Body:    fmt.Sprintf("<h1>Welcome, %s!</h1><p>Your account is ready. Pick a subscription package to start learning.</p>", html.EscapeString(name)),
	}
}

func PasswordResetEmail(resetLink string) Email {
	return Email{
		Subject: "Your Password Reset Link",
		Body:    fmt.Sprintf("<h1>Password Reset</h1><p>Click the link below to reset your password. This link is valid for 15 minutes.</p><p><a href='%s'>Reset Password</a></p>", html.EscapeString(resetLink)),
	}
}

func PaymentApprovedEmail(packageName string, endDate string) Email {
	return Email{
		Subject: "Your Subscription is Active",
		Body:    fmt.Sprintf("<h1>Payment Approved</h1><p>Your payment for <b>%s</b> was approved. Your subscription is active until %s.</p>", html.EscapeString(packageName), endDate),
	}
}

func PaymentRejectedEmail(reason string) Email {
	return Email{
		Subject: "Update on Your Payment",
		Body:    fmt.Sprintf("<h1>Payment Not Approved</h1><p>We could not verify your transfer.</p><p><b>Reason:</b> %s</p><p>You can submit a new payment proof from your dashboard.</p>", html.EscapeString(reason)),
	}
}

func ApplicationApprovedEmail(email, temporaryPassword string) Email {
	body := "<h1>Congratulations!</h1><p>Your application to teach on Aiqda has been approved. You can now create courses.</p>"
	if temporaryPassword != "" {
		body += fmt.Sprintf("<p>Sign in with <b>%s</b> and the temporary password <b>%s</b>, then change it from your profile.</p>", html.EscapeString(email), html.EscapeString(temporaryPassword))
	}
	return Email{Subject: "Your Instructor Application has been Approved!", Body: body}
}

func ApplicationRejectedEmail(reason string) Email {
	return Email{
		Subject: "Update on Your Instructor Application",
		Body:    fmt.Sprintf("<h1>Application Update</h1><p>After careful review, your application was not approved at this time.</p><p><b>Reason:</b> %s</p>", html.EscapeString(reason)),
	}
}

func CertificateEmail(courseTitle, url string) Email {
	return Email{
		Subject: "Your Certificate is Ready",
		Body:    fmt.Sprintf("<h1>Well done!</h1><p>You completed <b>%s</b>.</p><p><a href='%s'>Download your certificate</a></p>", html.EscapeString(courseTitle), html.EscapeString(url)),
	}
}

func SubscriptionExpiringEmail(packageName string, endDate string) Email {
	return Email{
		Subject: "Your Subscription is Ending Soon",
		Body:    fmt.Sprintf("<h1>Subscription Reminder</h1><p>Your <b>%s</b> subscription ends on %s.</p><p>Renew from your dashboard to keep access to your courses.</p>", html.EscapeString(packageName), html.EscapeString(endDate)),
	}
}
