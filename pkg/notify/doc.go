// Package notify reports maintenance job outcomes to operators.
//
// Every job result type implements Source, mapping itself into the generic
// Notification shape. The Dispatcher always logs the notification and, when
// enabled, posts it to a webhook:
//
//	POST <webhook_url>
//	{"text": "<summary>", "fields": [{"title": "...", "value": "...", "short": true}]}
//
// Failed results are only posted when their failure count reaches the
// configured threshold; successful results are always posted. Delivery
// errors are logged and never returned to the job that produced the result.
package notify
