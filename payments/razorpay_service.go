package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math"

	razorpay "github.com/razorpay/razorpay-go"

	config "github.com/assistlink/assistlink_backend/configs"
)

var razorpayClient *razorpay.Client

// InitRazorpay builds the Razorpay client from RAZORPAY_KEY_ID and
// RAZORPAY_KEY_SECRET. Without keys the payment endpoints report themselves
// as unconfigured instead of failing mid-checkout.
func InitRazorpay() {
	keyID := config.Config("RAZORPAY_KEY_ID")
	keySecret := config.Config("RAZORPAY_KEY_SECRET")
	if keyID == "" || keySecret == "" {
		log.Println("⚠️ Razorpay keys not set, payment service disabled")
		return
	}
	razorpayClient = razorpay.NewClient(keyID, keySecret)
	log.Println("✅ Razorpay payment service initialized")
}

// Configured reports whether the Razorpay client is usable.
func Configured() bool {
	return razorpayClient != nil
}

// CreateOrder opens a Razorpay order for the given amount in major currency
// units and returns the order id.
func CreateOrder(amount float64, currency, receipt string) (string, error) {
	if razorpayClient == nil {
		return "", errors.New("payment service is not configured")
	}

	data := map[string]interface{}{
		"amount":   int64(math.Round(amount * 100)),
		"currency": currency,
		"receipt":  receipt,
	}
	order, err := razorpayClient.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create razorpay order: %w", err)
	}

	orderID, ok := order["id"].(string)
	if !ok || orderID == "" {
		return "", errors.New("razorpay order response missing id")
	}
	return orderID, nil
}

// FetchPayment retrieves a payment record from Razorpay so its status can be
// checked against what the client claims.
func FetchPayment(paymentID string) (map[string]interface{}, error) {
	if razorpayClient == nil {
		return nil, errors.New("payment service is not configured")
	}
	return razorpayClient.Payment.Fetch(paymentID, nil, nil)
}

// VerifySignature checks the HMAC-SHA256 signature Razorpay computes over
// "order_id|payment_id" with the key secret. Compared in constant time.
func VerifySignature(orderID, paymentID, signature string) bool {
	secret := config.Config("RAZORPAY_KEY_SECRET")
	if secret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
