package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpclient "github.com/oliveedge/oliveedge/pkg/http"
	"github.com/oliveedge/oliveedge/pkg/testkit"
)

const testSecret = "test_secret_k3y"

func sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureValid(t *testing.T) {
	sig := sign("order_abc", "pay_xyz", testSecret)
	assert.True(t, VerifySignature("order_abc", "pay_xyz", sig, testSecret))
}

func TestVerifySignatureSingleBitMutation(t *testing.T) {
	sig := sign("order_abc", "pay_xyz", testSecret)

	// Flipping any single hex character must invalidate the signature.
	for i := 0; i < len(sig); i++ {
		mutated := []byte(sig)
		if mutated[i] == '0' {
			mutated[i] = '1'
		} else {
			mutated[i] = '0'
		}
		assert.False(t, VerifySignature("order_abc", "pay_xyz", string(mutated), testSecret),
			"mutation at position %d must fail verification", i)
	}
}

func TestVerifySignatureWrongInputs(t *testing.T) {
	sig := sign("order_abc", "pay_xyz", testSecret)

	assert.False(t, VerifySignature("order_abd", "pay_xyz", sig, testSecret), "wrong order id")
	assert.False(t, VerifySignature("order_abc", "pay_xyy", sig, testSecret), "wrong payment id")
	assert.False(t, VerifySignature("order_abc", "pay_xyz", sig, "other_secret"), "wrong secret")
	assert.False(t, VerifySignature("order_abc", "pay_xyz", sig[:len(sig)-1], testSecret), "truncated signature")
}

func TestVerifySignatureEmptyInputsFailClosed(t *testing.T) {
	sig := sign("order_abc", "pay_xyz", testSecret)

	assert.False(t, VerifySignature("", "pay_xyz", sig, testSecret))
	assert.False(t, VerifySignature("order_abc", "", sig, testSecret))
	assert.False(t, VerifySignature("order_abc", "pay_xyz", "", testSecret))
	assert.False(t, VerifySignature("order_abc", "pay_xyz", sig, ""))
}

func TestClientVerifySignatureUsesConfiguredSecret(t *testing.T) {
	c := NewWithCredentials("key_id", testSecret, "https://api.razorpay.test")
	sig := sign("order_abc", "pay_xyz", testSecret)

	assert.True(t, c.VerifySignature("order_abc", "pay_xyz", sig))
	assert.False(t, c.VerifySignature("order_abc", "pay_xyz", sign("order_abc", "pay_xyz", "wrong")))
}

func TestCreateIntentConvertsToMinorUnits(t *testing.T) {
	mt := testkit.NewMockTransport(testkit.MockRoute{
		URLPrefix: "https://api.razorpay.test/v1/orders",
		Status:    200,
		Body:      `{"id":"order_gw1","amount":125000,"currency":"INR","receipt":"ord123","status":"created"}`,
	})
	httpclient.DefaultClient.Transport = mt
	defer httpclient.ResetTransport()

	c := NewWithCredentials("key_id", testSecret, "https://api.razorpay.test")
	intent, err := c.CreateIntent(context.Background(), 1250.00, "INR", "ord123")
	require.NoError(t, err)

	assert.Equal(t, "order_gw1", intent.ID)
	assert.Equal(t, int64(125000), intent.Amount)
	assert.Equal(t, "created", intent.Status)
	mt.AssertAllCalled(t)
}

func TestCreateIntentGatewayErrorSurfaces(t *testing.T) {
	mt := testkit.NewMockTransport(testkit.MockRoute{
		URLPrefix: "https://api.razorpay.test/v1/orders",
		Status:    502,
		Body:      `{"error":{"description":"upstream unavailable"}}`,
	})
	httpclient.DefaultClient.Transport = mt
	defer httpclient.ResetTransport()

	c := NewWithCredentials("key_id", testSecret, "https://api.razorpay.test")
	_, err := c.CreateIntent(context.Background(), 1250.00, "INR", "ord123")
	require.Error(t, err)
}

func TestCreateIntentWithoutCredentials(t *testing.T) {
	c := NewWithCredentials("", "", "https://api.razorpay.test")
	_, err := c.CreateIntent(context.Background(), 100, "INR", "r1")
	require.Error(t, err)
}
