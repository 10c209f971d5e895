package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	withdrawaldomain "github.com/smallbiznis/royalty/internal/withdrawal/domain"
)

type quoteWithdrawalRequest struct {
	Amount int64  `json:"amount"`
	Method string `json:"method"`
}

type requestWithdrawalRequest struct {
	Amount            int64  `json:"amount"`
	Method            string `json:"method"`
	BankName          string `json:"bank_name"`
	AccountNumber     string `json:"account_number"`
	AccountHolderName string `json:"account_holder_name"`
	PhoneNumber       string `json:"phone_number"`
}

func (s *Server) QuoteWithdrawal(c *gin.Context) {
	var req quoteWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.withdrawalSvc.Quote(c.Request.Context(), withdrawaldomain.QuoteRequest{
		CreatorID: strings.TrimSpace(c.Param("creator_id")),
		Amount:    req.Amount,
		MethodID:  strings.TrimSpace(req.Method),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RequestWithdrawal(c *gin.Context) {
	var req requestWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.withdrawalSvc.Request(c.Request.Context(), withdrawaldomain.Request{
		CreatorID: strings.TrimSpace(c.Param("creator_id")),
		Amount:    req.Amount,
		MethodID:  strings.TrimSpace(req.Method),
		Details: withdrawaldomain.PaymentDetails{
			BankName:          req.BankName,
			AccountNumber:     req.AccountNumber,
			AccountHolderName: req.AccountHolderName,
			PhoneNumber:       req.PhoneNumber,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListWithdrawals(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.withdrawalSvc.List(c.Request.Context(), strings.TrimSpace(c.Param("creator_id")), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// parseLimit returns 0 for an absent limit so the service applies its default.
func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, newValidationError("limit", "invalid_limit", "limit must be a positive integer")
	}
	return limit, nil
}
