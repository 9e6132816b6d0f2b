package clients

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLinks struct {
	createFn func(data map[string]interface{}) (map[string]interface{}, error)
	allFn    func(query map[string]interface{}) (map[string]interface{}, error)
}

func (m *mockLinks) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	return m.createFn(data)
}

func (m *mockLinks) All(query map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	return m.allFn(query)
}

func TestRazorpayReferenceID(t *testing.T) {
	ref := RazorpayReferenceID("booking_0190a3c4-1111-7000-8000-000000000001_deadbeef")
	assert.Equal(t, "0190a3c4111170008000000000000001deadbeef", ref)
	assert.Len(t, ref, 40)
}

func TestRazorpayInitiate(t *testing.T) {
	var sent map[string]interface{}
	g := &RazorpayGateway{
		Timeout: time.Second,
		Links: &mockLinks{createFn: func(data map[string]interface{}) (map[string]interface{}, error) {
			sent = data
			return map[string]interface{}{"id": "plink_1", "short_url": "https://rzp.io/i/abc"}, nil
		}},
	}

	req := sampleInitiate()
	req.Amount = decimal.RequireFromString("1250.50")
	res, err := g.Initiate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "https://rzp.io/i/abc", res.CheckoutURL)
	assert.Equal(t, "plink_1", res.ProviderReference)
	assert.Equal(t, int64(125050), sent["amount"])
	assert.Equal(t, req.TxRef, sent["notes"].(map[string]interface{})["tx_ref"])
}

func TestRazorpayInitiateFailures(t *testing.T) {
	t.Run("Rejected", func(t *testing.T) {
		g := &RazorpayGateway{Timeout: time.Second, Links: &mockLinks{createFn: func(map[string]interface{}) (map[string]interface{}, error) {
			return nil, errors.New("The amount must be atleast INR 1.00")
		}}}
		res, err := g.Initiate(context.Background(), sampleInitiate())
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.False(t, res.Network)
		assert.Equal(t, "The amount must be atleast INR 1.00", res.Error)
	})

	t.Run("Network", func(t *testing.T) {
		g := &RazorpayGateway{Timeout: time.Second, Links: &mockLinks{createFn: func(map[string]interface{}) (map[string]interface{}, error) {
			return nil, &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		}}}
		res, err := g.Initiate(context.Background(), sampleInitiate())
		require.NoError(t, err)
		assert.True(t, res.Network)
		assert.Equal(t, ErrMsgNetwork, res.Error)
	})

	t.Run("Timeout", func(t *testing.T) {
		g := &RazorpayGateway{Timeout: 10 * time.Millisecond, Links: &mockLinks{createFn: func(map[string]interface{}) (map[string]interface{}, error) {
			time.Sleep(100 * time.Millisecond)
			return map[string]interface{}{}, nil
		}}}
		res, err := g.Initiate(context.Background(), sampleInitiate())
		require.NoError(t, err)
		assert.True(t, res.Network)
	})
}

func TestRazorpayVerify(t *testing.T) {
	var query map[string]interface{}
	g := &RazorpayGateway{Timeout: time.Second, Links: &mockLinks{allFn: func(q map[string]interface{}) (map[string]interface{}, error) {
		query = q
		return map[string]interface{}{
			"payment_links": []interface{}{
				map[string]interface{}{
					"id":       "plink_1",
					"status":   "paid",
					"payments": []interface{}{map[string]interface{}{"method": "upi"}},
				},
			},
		}, nil
	}}}

	res, err := g.Verify(context.Background(), "booking_0190a3c4-1111-7000-8000-000000000001_deadbeef")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "upi", res.Method)
	assert.Equal(t, RazorpayReferenceID("booking_0190a3c4-1111-7000-8000-000000000001_deadbeef"), query["reference_id"])
}
