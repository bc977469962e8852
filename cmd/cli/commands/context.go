package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/OSPRERA-Gerencia/SGPD/internal/config"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/core/services"
	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg     *config.Config
	Store   db.Store
	Tickets services.TicketCreator
	Logger  *zap.Logger
	Ctx     context.Context
}
