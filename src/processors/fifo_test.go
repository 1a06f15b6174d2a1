package processors

import (
	"testing"

	"github.com/Roifine/us-stocks-cgt-helper/src/models"
	"github.com/stretchr/testify/require"
)

func TestFIFOSelectOldestFirst(t *testing.T) {
	rq := require.New(t)
	lots := []models.PurchaseLot{
		lot("2023-03-01", "10", "30", "0"),
		lot("2023-01-01", "10", "10", "0"),
		lot("2023-02-01", "10", "20", "0"),
	}

	res := NewFIFOStrategy().Select(lots, d("15"), day("2024-01-01"))

	rq.True(res.Unsatisfied.IsZero())
	rq.Len(res.Consumed, 2)
	rq.Equal("2023-01-01", res.Consumed[0].PurchaseDate.String())
	rq.True(res.Consumed[0].UnitsUsed.Equal(d("10")))
	rq.Equal("2023-02-01", res.Consumed[1].PurchaseDate.String())
	rq.True(res.Consumed[1].UnitsUsed.Equal(d("5")))

	rq.Len(res.UpdatedLots, 2)
	rq.Equal("2023-03-01", res.UpdatedLots[0].PurchaseDate.String())
	rq.True(res.UpdatedLots[0].UnitsRemaining.Equal(d("10")))
	rq.Equal("2023-02-01", res.UpdatedLots[1].PurchaseDate.String())
	rq.True(res.UpdatedLots[1].UnitsRemaining.Equal(d("5")))
}

func TestFIFOSelectSameDayKeepsInsertionOrder(t *testing.T) {
	rq := require.New(t)
	first := lot("2023-01-01", "10", "10", "0")
	second := lot("2023-01-01", "10", "20", "0")

	res := NewFIFOStrategy().Select([]models.PurchaseLot{first, second}, d("5"), day("2023-06-01"))

	rq.Len(res.Consumed, 1)
	rq.Equal(first.ID, res.Consumed[0].LotID)
}

func TestFIFOSelectShortfall(t *testing.T) {
	rq := require.New(t)
	lots := []models.PurchaseLot{
		lot("2023-01-01", "20", "10", "0"),
		lot("2023-02-01", "10", "10", "0"),
	}

	res := NewFIFOStrategy().Select(lots, d("40"), day("2023-06-01"))

	rq.True(res.Unsatisfied.Equal(d("10")))
	rq.Len(res.Consumed, 2)
	rq.Empty(res.UpdatedLots)
}

func TestFIFOSelectDoesNotMutateInputs(t *testing.T) {
	rq := require.New(t)
	lots := []models.PurchaseLot{
		lot("2023-01-01", "10", "10", "8"),
		lot("2023-02-01", "10", "20", "4"),
	}

	NewFIFOStrategy().Select(lots, d("12"), day("2023-06-01"))

	rq.True(lots[0].UnitsRemaining.Equal(d("10")))
	rq.True(lots[0].CommissionForeign.Equal(d("8")))
	rq.True(lots[1].UnitsRemaining.Equal(d("10")))
	rq.True(lots[1].CommissionForeign.Equal(d("4")))
}

func TestFIFOCommissionProratedFromRemaining(t *testing.T) {
	rq := require.New(t)
	strategy := NewFIFOStrategy()
	lots := []models.PurchaseLot{lot("2023-01-01", "10", "100", "10")}

	first := strategy.Select(lots, d("4"), day("2023-06-01"))
	rq.True(first.Consumed[0].CommissionForeignShare.Equal(d("4")))
	rq.Len(first.UpdatedLots, 1)
	rq.True(first.UpdatedLots[0].UnitsRemaining.Equal(d("6")))
	rq.True(first.UpdatedLots[0].CommissionForeign.Equal(d("6")))

	second := strategy.Select(first.UpdatedLots, d("6"), day("2023-07-01"))
	rq.True(second.Consumed[0].CommissionForeignShare.Equal(d("6")))
	rq.Empty(second.UpdatedLots)
}
