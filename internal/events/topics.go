package events

// Topic constants for domain events emitted by the admin API.
const (
	TopicAccountCreated   = "account.created"
	TopicAccountUpdated   = "account.updated"
	TopicAccountDeleted   = "account.deleted"
	TopicShopCreated      = "shop.created"
	TopicShopUpdated      = "shop.updated"
	TopicShopDeleted      = "shop.deleted"
	TopicCustomerCreated  = "customer.created"
	TopicCustomerUpdated  = "customer.updated"
	TopicCustomerDeleted  = "customer.deleted"
	TopicProductCreated   = "product.created"
	TopicProductUpdated   = "product.updated"
	TopicProductDeleted   = "product.deleted"
	TopicInvoiceCreated   = "invoice.created"
	TopicQuotationCreated = "quotation.created"
	TopicQuotationDeleted = "quotation.deleted"
)

// DefaultTopics returns every topic the API emits.
func DefaultTopics() []string {
	return []string{
		TopicAccountCreated,
		TopicAccountUpdated,
		TopicAccountDeleted,
		TopicShopCreated,
		TopicShopUpdated,
		TopicShopDeleted,
		TopicCustomerCreated,
		TopicCustomerUpdated,
		TopicCustomerDeleted,
		TopicProductCreated,
		TopicProductUpdated,
		TopicProductDeleted,
		TopicInvoiceCreated,
		TopicQuotationCreated,
		TopicQuotationDeleted,
	}
}

// KnownTopic reports whether topic is one of DefaultTopics.
func KnownTopic(topic string) bool {
	for _, t := range DefaultTopics() {
		if t == topic {
			return true
		}
	}
	return false
}
