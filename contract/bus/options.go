package bus

// PublishOptions adjusts where and how a signal is published.
// TopicOverride replaces the event's Topic; Key and Headers travel with the message.
type PublishOptions struct {
	TopicOverride string
	Key           string
	Headers       map[string]string
}
