package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/verimobi/phone-verify/internal/repository"
	"github.com/verimobi/phone-verify/internal/service"
	"github.com/verimobi/phone-verify/pkg/config"
)

type Handlers struct {
	verifyService service.VerifyService
	verifyRepo    repository.VerifyRepository
	accountRepo   repository.AccountRepository
	config        *config.Config
}

func New(
	verifyService service.VerifyService,
	verifyRepo repository.VerifyRepository,
	accountRepo repository.AccountRepository,
	config *config.Config,
) *Handlers {
	return &Handlers{
		verifyService: verifyService,
		verifyRepo:    verifyRepo,
		accountRepo:   accountRepo,
		config:        config,
	}
}

// Helper functions
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
