package payment

// sslcommerzSessionResponse is the JSON returned by the session API
type sslcommerzSessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

// sslcommerzValidationResponse is the JSON returned by the validation API
type sslcommerzValidationResponse struct {
	Status      string `json:"status"`
	TranID      string `json:"tran_id"`
	ValID       string `json:"val_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency_type"`
	BankTranID  string `json:"bank_tran_id"`
	RiskLevel   string `json:"risk_level"`
	RiskTitle   string `json:"risk_title"`
	APIConnect  string `json:"APIConnect"`
	ValueA      string `json:"value_a"`
	ValueB      string `json:"value_b"`
	ErrorReason string `json:"error"`
}
