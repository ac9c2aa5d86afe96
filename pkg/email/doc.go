// Package email sends transactional emails through a provider-agnostic
// EmailSender interface.
//
// Two implementations are provided:
//   - NewPostmarkClient delivers through Postmark with open and HTML link tracking
//   - NewDevSender writes each message to disk as .html, .txt and .json files
//
// NewSender picks between them from Config: without Postmark tokens it falls
// back to the dev sender so local runs never reach a real inbox.
//
//	sender, err := email.NewSender(cfg)
//	if err != nil {
//	    return err
//	}
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//	    SendTo:   "user@example.com",
//	    Subject:  "Your trial ends in 7 days",
//	    BodyHTML: "<p>Upgrade now</p>",
//	    BodyText: "Upgrade now",
//	    Tag:      "trial_ends_in_7_days",
//	})
//
// All implementations validate parameters before sending and wrap provider
// failures with ErrFailedToSendEmail.
package email
