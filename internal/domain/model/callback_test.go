package model

import (
	"errors"
	"testing"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
)

const envelopeSuccess = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "M1",
      "CheckoutRequestID": "C1",
      "ResultCode": 0,
      "ResultDesc": "The service request is processed successfully.",
      "CallbackMetadata": {
        "Item": [
          {"Name": "Amount", "Value": 100.0},
          {"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
          {"Name": "Balance"},
          {"Name": "TransactionDate", "Value": 20191219102115},
          {"Name": "PhoneNumber", "Value": 254708374149}
        ]
      }
    }
  }
}`

func TestParseCallbackEnvelope(t *testing.T) {
	cb, err := ParseCallback([]byte(envelopeSuccess))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.MerchantRequestID != "M1" || cb.CheckoutRequestID != "C1" {
		t.Fatalf("unexpected ids: %+v", cb)
	}
	if !cb.Succeeded() {
		t.Fatal("expected success result")
	}
	m := cb.Metadata
	if m.Amount != 100 || m.ReceiptNumber != "NLJ7RT61SV" || m.PhoneNumber != "254708374149" || m.TransactionDate != "20191219102115" {
		t.Fatalf("unexpected metadata: %+v", m)
	}
	if len(cb.Raw) == 0 {
		t.Fatal("expected raw payload to be kept")
	}
}

func TestParseCallbackShapes(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		checkout  string
		code      int
		hasResult bool
		reference string
		phone     string
	}{
		{
			name:      "bare stkCallback with string code",
			body:      `{"stkCallback":{"CheckoutRequestID":"C2","ResultCode":"1032","ResultDesc":"Request cancelled by user"}}`,
			checkout:  "C2",
			code:      1032,
			hasResult: true,
		},
		{
			name:      "callback object itself",
			body:      `{"CheckoutRequestID":"C3","ResultCode":1}`,
			checkout:  "C3",
			code:      1,
			hasResult: true,
		},
		{
			name:      "ids only in metadata",
			body:      `{"Body":{"stkCallback":{"ResultCode":0,"CallbackMetadata":{"Item":[{"Name":"CheckoutRequestID","Value":"C4"},{"Name":"AccountReference","Value":"PKABC"}]}}}}`,
			checkout:  "C4",
			hasResult: true,
			reference: "PKABC",
		},
		{
			name:      "mpesa amount alias and top level phone",
			body:      `{"ResultCode":0,"PhoneNumber":"0712345678","CallbackMetadata":{"Item":[{"Name":"MpesaAmount","Value":"99.6"}]}}`,
			hasResult: true,
			phone:     "0712345678",
		},
		{
			name:     "missing result code",
			body:     `{"Body":{"stkCallback":{"CheckoutRequestID":"C5"}}}`,
			checkout: "C5",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cb, err := ParseCallback([]byte(tc.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cb.CheckoutRequestID != tc.checkout {
				t.Fatalf("expected checkout id %q, got %q", tc.checkout, cb.CheckoutRequestID)
			}
			if cb.HasResult != tc.hasResult || cb.ResultCode != tc.code {
				t.Fatalf("unexpected result %v/%d", cb.HasResult, cb.ResultCode)
			}
			if cb.Metadata.AccountReference != tc.reference {
				t.Fatalf("unexpected reference %q", cb.Metadata.AccountReference)
			}
			if cb.Metadata.PhoneNumber != tc.phone {
				t.Fatalf("unexpected phone %q", cb.Metadata.PhoneNumber)
			}
		})
	}
}

func TestParseCallbackAmountRounding(t *testing.T) {
	cb, err := ParseCallback([]byte(`{"ResultCode":0,"CallbackMetadata":{"Item":[{"Name":"MpesaAmount","Value":"99.6"}]}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.Metadata.Amount != 100 {
		t.Fatalf("expected rounded amount 100, got %d", cb.Metadata.Amount)
	}
}

func TestParseCallbackMalformed(t *testing.T) {
	for _, body := range []string{`{"Body":`, `not json`, ``, `{"ResultCode":0,}`} {
		if _, err := ParseCallback([]byte(body)); !errors.Is(err, domainErrors.ErrMalformedPayload) {
			t.Fatalf("expected malformed payload for %q, got %v", body, err)
		}
	}
}

func TestParseCallbackUnexpectedShapesYieldEmptyCallback(t *testing.T) {
	bodies := []string{
		`[1,2]`,
		`"text"`,
		`42`,
		`null`,
		`{"Body":"ping"}`,
		`{"Body":{"stkCallback":[1]}}`,
		`{"stkCallback":"x"}`,
	}
	for _, body := range bodies {
		cb, err := ParseCallback([]byte(body))
		if err != nil {
			t.Fatalf("expected %q to parse, got %v", body, err)
		}
		if cb.HasResult || cb.CheckoutRequestID != "" || cb.MerchantRequestID != "" {
			t.Fatalf("expected empty callback for %q, got %+v", body, cb)
		}
		if string(cb.Raw) != body {
			t.Fatalf("expected raw body to be kept for %q", body)
		}
	}
}

func TestParseCallbackSingleMetadataItem(t *testing.T) {
	body := `{"Body":{"stkCallback":{"CheckoutRequestID":"C1","ResultCode":0,"CallbackMetadata":{"Item":{"Name":"Amount","Value":100}}}}}`

	cb, err := ParseCallback([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.CheckoutRequestID != "C1" || !cb.Succeeded() {
		t.Fatalf("unexpected callback: %+v", cb)
	}
	if cb.Metadata.Amount != 100 {
		t.Fatalf("expected amount 100, got %d", cb.Metadata.Amount)
	}
}

func TestParseCallbackSkipsBadMetadataEntries(t *testing.T) {
	body := `{"CheckoutRequestID":"C6","ResultCode":0,"CallbackMetadata":{"Item":[
		"junk",
		7,
		{"Value":"nameless"},
		{"Name":12,"Value":"numeric name"},
		{"Name":"MpesaReceiptNumber","Value":{"nested":true}},
		{"Name":"Amount","Value":250},
		{"Name":"Amount","Value":1}
	]}}`

	cb, err := ParseCallback([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.Metadata.Amount != 250 {
		t.Fatalf("expected first amount to win, got %d", cb.Metadata.Amount)
	}
	if cb.Metadata.ReceiptNumber != "" {
		t.Fatalf("expected object receipt to be ignored, got %q", cb.Metadata.ReceiptNumber)
	}
}

func TestParseCallbackCaseInsensitiveKeys(t *testing.T) {
	body := `{"body":{"STKCALLBACK":{"checkoutRequestId":"C7","resultCode":"0"}}}`

	cb, err := ParseCallback([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.CheckoutRequestID != "C7" || !cb.Succeeded() {
		t.Fatalf("unexpected callback: %+v", cb)
	}
}
