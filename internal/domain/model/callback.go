package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
)

// ResultCodeSuccess is the gateway result code of a completed payment.
const ResultCodeSuccess = 0

// PaymentMetadata is the flattened transaction detail list of a callback.
type PaymentMetadata struct {
	ReceiptNumber    string
	Amount           int64
	PhoneNumber      string
	AccountReference string
	TransactionDate  string
}

// PaymentCallback is the normalised form of an inbound gateway webhook.
type PaymentCallback struct {
	MerchantRequestID string
	CheckoutRequestID string
	HasResult         bool
	ResultCode        int
	ResultDesc        string
	Metadata          PaymentMetadata
	Raw               json.RawMessage
}

// Succeeded reports whether the gateway confirmed the payment.
func (c *PaymentCallback) Succeeded() bool {
	return c.HasResult && c.ResultCode == ResultCodeSuccess
}

// scalar accepts any JSON scalar and keeps its textual form.
type scalar string

func (s *scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = scalar(strings.TrimSpace(str))
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		*s = ""
	default:
		*s = scalar(data)
	}
	return nil
}

// object is a JSON object decoded one level deep.
type object map[string]json.RawMessage

// asObject decodes raw as an object, yielding nil for any other JSON value.
func asObject(raw json.RawMessage) object {
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil
	}
	return o
}

// field looks key up exactly first, then case-insensitively.
func (o object) field(key string) (json.RawMessage, bool) {
	if v, ok := o[key]; ok {
		return v, true
	}
	for k, v := range o {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func (o object) child(key string) object {
	raw, ok := o.field(key)
	if !ok {
		return nil
	}
	return asObject(raw)
}

func (o object) text(key string) scalar {
	raw, ok := o.field(key)
	if !ok {
		return ""
	}
	var s scalar
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// metadataItems flattens CallbackMetadata.Item. A single object is read as a
// one element list; entries that are not objects or lack a Name are skipped.
func (o object) metadataItems() map[string]scalar {
	items := map[string]scalar{}
	meta := o.child("CallbackMetadata")
	raw, ok := meta.field("Item")
	if !ok {
		return items
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		list = []json.RawMessage{raw}
	}
	for _, entry := range list {
		item := asObject(entry)
		name := string(item.text("Name"))
		if name == "" {
			continue
		}
		if _, seen := items[name]; !seen {
			items[name] = item.text("Value")
		}
	}
	return items
}

// ParseCallback normalises a webhook body. It accepts the full envelope,
// a bare stkCallback object or the callback object itself. Only bodies that
// are not valid JSON are rejected; any other shape yields a callback with
// whatever fields could be read.
func ParseCallback(body []byte) (*PaymentCallback, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: body is not valid JSON", domainErrors.ErrMalformedPayload)
	}

	env := asObject(body)
	inner := env
	if stk := env.child("Body").child("stkCallback"); stk != nil {
		inner = stk
	} else if stk := env.child("stkCallback"); stk != nil {
		inner = stk
	}

	cb := &PaymentCallback{
		MerchantRequestID: firstNonEmpty(inner.text("MerchantRequestID"), env.text("MerchantRequestID")),
		CheckoutRequestID: firstNonEmpty(inner.text("CheckoutRequestID"), env.text("CheckoutRequestID")),
		ResultDesc:        string(inner.text("ResultDesc")),
		Raw:               append(json.RawMessage(nil), body...),
	}

	code := inner.text("ResultCode")
	if code == "" {
		code = env.text("ResultCode")
	}
	if n, err := strconv.Atoi(string(code)); err == nil {
		cb.HasResult = true
		cb.ResultCode = n
	}

	items := inner.metadataItems()

	if cb.MerchantRequestID == "" {
		cb.MerchantRequestID = string(items["MerchantRequestID"])
	}
	if cb.CheckoutRequestID == "" {
		cb.CheckoutRequestID = string(items["CheckoutRequestID"])
	}

	cb.Metadata = PaymentMetadata{
		ReceiptNumber:    string(items["MpesaReceiptNumber"]),
		Amount:           parseAmount(firstNonEmpty(items["Amount"], items["MpesaAmount"])),
		PhoneNumber:      firstNonEmpty(items["PhoneNumber"], inner.text("PhoneNumber"), env.text("PhoneNumber")),
		AccountReference: firstNonEmpty(items["AccountReference"], inner.text("AccountReference"), env.text("AccountReference")),
		TransactionDate:  string(items["TransactionDate"]),
	}

	return cb, nil
}

func firstNonEmpty(values ...scalar) string {
	for _, v := range values {
		if v != "" {
			return string(v)
		}
	}
	return ""
}

func parseAmount(v string) int64 {
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(math.Round(f))
}
