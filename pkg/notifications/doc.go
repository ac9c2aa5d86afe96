// Package notifications delivers rendered trial notifications over their
// configured channel and records every dispatch attempt.
//
// The Manager hands a Notification to a Deliverer, then appends a Dispatch
// entry with the outcome. A Dispatch that cannot be recorded is logged and
// does not change the delivery result.
//
//	router := notifications.NewMultiDeliverer(
//	    notifications.WithChannel(template.ChannelEmail, notifications.NewEmailDeliverer(sender)),
//	)
//	manager := notifications.NewManager(notifications.NewPGStorage(pool), router,
//	    notifications.WithManagerLogger(log),
//	)
//	err := manager.Send(ctx, notifications.FromRendered(accountID, "ada@example.com", rendered))
package notifications
