package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/w3gas/internal/gas"
	"github.com/Mohsinsiddi/w3gas/internal/period"
)

type calculateRequest struct {
	Address    string `json:"address" binding:"required"`
	TimePeriod string `json:"time_period"`
	Chain      string `json:"chain"`
	Currency   string `json:"currency"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.String(http.StatusOK, "Hello world!")
}

func (s *Server) handleCalculate(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidRequest, "invalid request body: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	report, err := s.calc.Calculate(ctx, gas.Request{
		Address:  req.Address,
		Period:   req.TimePeriod,
		Chain:    req.Chain,
		Currency: req.Currency,
	})
	if err != nil {
		status, code := classify(err)
		c.Error(err) //nolint:errcheck
		msg := err.Error()
		if status == http.StatusInternalServerError {
			s.log.Error("calculation failed",
				zap.String("request_id", RequestIDFrom(c.Request.Context())),
				zap.Error(err))
			msg = "internal error"
		}
		writeError(c, status, code, msg)
		return
	}

	c.JSON(http.StatusOK, report.Response())
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "cache": s.opts.CacheName})
}

func (s *Server) handlePeriods(c *gin.Context) {
	out := period.All()
	out = append(out, period.Period{Name: period.AllTime})
	c.JSON(http.StatusOK, out)
}

type chainInfo struct {
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	ChainID        int64  `json:"chain_id"`
	NativeCurrency string `json:"native_currency"`
}

func (s *Server) handleChains(c *gin.Context) {
	all := s.chains.All()
	out := make([]chainInfo, 0, len(all))
	for _, ch := range all {
		out = append(out, chainInfo{
			Name:           ch.Name,
			DisplayName:    ch.DisplayName,
			ChainID:        ch.ChainID,
			NativeCurrency: ch.NativeCurrency,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Status(http.StatusOK)
	s.metrics.WriteJSON(c.Writer)
}
