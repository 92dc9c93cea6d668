package mpesa

// CallbackPayload is the gateway-initiated POST body:
// {Body: {stkCallback: {CheckoutRequestID, ResultCode, ...}}}.
// ResultCode 0 means the customer completed payment.
type CallbackPayload struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

type StkCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
}

// Succeeded reports whether the callback signals a completed payment.
func (c StkCallback) Succeeded() bool {
	return c.ResultCode == 0 && c.CheckoutRequestID != ""
}
