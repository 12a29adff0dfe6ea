// Command incentive-mock is a stand-in for the external incentive
// service, for local development and end-to-end testing. It pays ten
// percent of the transfer amount, capped at 15.
package main

import (
	"flag"
	"fmt"
	"net/http"

	"transfer-settlement-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

var (
	rate     = decimal.RequireFromString("0.1")
	maxBonus = decimal.RequireFromString("15")
)

type incentiveRequest struct {
	SenderID    string          `json:"sender_id"`
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
}

func computeIncentive(amount decimal.Decimal) decimal.Decimal {
	bonus := amount.Mul(rate)
	if bonus.GreaterThan(maxBonus) {
		return maxBonus
	}
	return bonus
}

func main() {
	port := flag.Int("port", 8081, "listen port")
	flag.Parse()

	log := logger.New("info", true)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/incentive", func(c *gin.Context) {
		var req incentiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}

		bonus := computeIncentive(req.Amount)
		log.Info().
			Str("sender_id", req.SenderID).
			Str("amount", req.Amount.String()).
			Str("incentive", bonus.String()).
			Msg("incentive computed")

		c.JSON(http.StatusOK, gin.H{"amount": bonus.InexactFloat64()})
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Info().Str("addr", addr).Msg("incentive mock listening")
	if err := r.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("incentive mock failed")
	}
}
