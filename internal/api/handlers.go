package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gocarina/gocsv"
	"github.com/gorilla/schema"

	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/apperr"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/commands"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/ledger"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/relations"
)

// Handler holds API route handlers.
type Handler struct {
	bot     *commands.Router
	ledger  *ledger.Engine
	reg     *relations.Registry
	decoder *schema.Decoder
}

// NewHandler creates a new Handler.
func NewHandler(bot *commands.Router, engine *ledger.Engine, reg *relations.Registry) *Handler {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return &Handler{bot: bot, ledger: engine, reg: reg, decoder: dec}
}

// Command handles POST /api/commands.
//
// Rejected commands still answer 200: the reply text is meant for the chat
// and Error carries the failure code. Only unexpected failures answer 500.
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	msg := commands.Message{
		Text:        req.Text,
		GroupID:     req.GroupID,
		SenderID:    req.SenderID,
		Attachments: commands.Images(req.Images),
	}

	reply := h.bot.Dispatch(r.Context(), msg)
	resp := CommandResponse{Text: reply.Text, Image: reply.Image}
	status := http.StatusOK
	if reply.Err != nil {
		resp.Error = apperr.Code(reply.Err)
		if resp.Error == "" {
			resp.Error = "internal"
			status = http.StatusInternalServerError
		}
	}
	writeJSON(w, status, resp)
}

// SlackCommand handles POST /api/slack/commands.
func (h *Handler) SlackCommand(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid form body"))
		return
	}
	var cmd SlackCommand
	if err := h.decoder.Decode(&cmd, r.PostForm); err != nil {
		slog.Warn("slack command decode failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody("invalid slash command"))
		return
	}

	reply := h.bot.Dispatch(r.Context(), cmd.Message())
	resp := SlackResponse{ResponseType: "in_channel", Text: reply.Text}
	if reply.Err != nil {
		resp.ResponseType = "ephemeral"
	}
	if reply.Image != "" {
		resp.Text += "\n" + reply.Image
	}
	writeJSON(w, http.StatusOK, resp)
}

// TransactionsCSV handles GET /api/ledger/transactions.csv.
func (h *Handler) TransactionsCSV(w http.ResponseWriter, _ *http.Request) {
	txs := h.ledger.Transactions()
	rows := make([]TransactionRow, 0, len(txs))
	for _, tx := range txs {
		row := TransactionRow{
			Time:   tx.Time.Format(ledger.TimeLayout),
			Person: tx.Person,
			Type:   string(tx.Type),
			Amount: strconv.FormatFloat(tx.Amount, 'f', -1, 64),
		}
		if tx.Type == ledger.TxBorrow {
			row.DailyRate = strconv.FormatFloat(tx.DailyRate, 'f', -1, 64)
		}
		rows = append(rows, row)
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	if err := gocsv.Marshal(&rows, w); err != nil {
		slog.Error("csv export failed", slog.String("error", err.Error()))
	}
}

// Relations handles GET /api/relations/{group}.
func (h *Handler) Relations(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	entries := h.reg.Records(group)
	resp := RelationListResponse{Group: group, Relations: make([]RelationItem, 0, len(entries)), Total: len(entries)}
	for _, e := range entries {
		resp.Relations = append(resp.Relations, RelationItem{
			ID:            e.ID,
			Index:         e.Index,
			PartnerName:   e.PartnerName,
			PartnerID:     e.PartnerID,
			TheirDiplomat: e.TheirDiplomat,
			OurDiplomat:   e.OurDiplomat,
			Screenshot:    e.Screenshot,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
