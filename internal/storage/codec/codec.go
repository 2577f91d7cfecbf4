// Package codec converts order documents to the JSON columns shared by the SQL backends.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/polkiloo/storepay/internal/domain/model"
)

// OrderDocuments holds the JSON encoded parts of an order row.
type OrderDocuments struct {
	Items       []byte
	Delivery    []byte
	History     []byte
	Correlation []byte
}

// EncodeOrder marshals the structured order fields. Correlation stays nil when absent.
func EncodeOrder(o *model.Order) (OrderDocuments, error) {
	var (
		docs OrderDocuments
		err  error
	)
	items := o.Items
	if items == nil {
		items = []model.LineItem{}
	}
	if docs.Items, err = json.Marshal(items); err != nil {
		return docs, fmt.Errorf("encode items: %w", err)
	}
	if docs.Delivery, err = json.Marshal(o.Delivery); err != nil {
		return docs, fmt.Errorf("encode delivery: %w", err)
	}
	history := o.StatusHistory
	if history == nil {
		history = []model.StatusEntry{}
	}
	if docs.History, err = json.Marshal(history); err != nil {
		return docs, fmt.Errorf("encode status history: %w", err)
	}
	if o.Correlation != nil {
		if docs.Correlation, err = json.Marshal(o.Correlation); err != nil {
			return docs, fmt.Errorf("encode payment correlation: %w", err)
		}
	}
	return docs, nil
}

// DecodeOrder fills the structured fields of o from stored documents.
func DecodeOrder(o *model.Order, docs OrderDocuments) error {
	if err := json.Unmarshal(docs.Items, &o.Items); err != nil {
		return fmt.Errorf("decode items: %w", err)
	}
	if err := json.Unmarshal(docs.Delivery, &o.Delivery); err != nil {
		return fmt.Errorf("decode delivery: %w", err)
	}
	if err := json.Unmarshal(docs.History, &o.StatusHistory); err != nil {
		return fmt.Errorf("decode status history: %w", err)
	}
	o.Correlation = nil
	if len(docs.Correlation) > 0 && string(docs.Correlation) != "null" {
		var c model.PaymentCorrelation
		if err := json.Unmarshal(docs.Correlation, &c); err != nil {
			return fmt.Errorf("decode payment correlation: %w", err)
		}
		o.Correlation = &c
	}
	return nil
}

// CorrelationIDs returns the indexed gateway identifiers, nil when unset.
func CorrelationIDs(o *model.Order) (merchant, checkout *string) {
	if o.Correlation == nil {
		return nil, nil
	}
	if v := o.Correlation.MerchantRequestID; v != "" {
		merchant = &v
	}
	if v := o.Correlation.CheckoutRequestID; v != "" {
		checkout = &v
	}
	return merchant, checkout
}
