package commands

import (
	"log/slog"

	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/ledger"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/relations"
)

// NewBot returns a router with the relations and ledger commands registered.
func NewBot(logger *slog.Logger, engine *ledger.Engine, reg *relations.Registry, pageSize int) *Router {
	r := NewRouter(logger)
	r.Register(NewRelationsPlugin(reg, pageSize).Commands()...)
	r.Register(NewLedgerPlugin(engine).Commands()...)
	return r
}
