package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/apperr"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/ledger"
)

// NoBorrowsMessage is the reply for query_borrow when no account is active.
const NoBorrowsMessage = "No borrowing records."

// NoTransactionsMessage is the reply for query_detail on an empty log.
const NoTransactionsMessage = "No transactions yet."

const (
	addBorrowUsage   = "add_borrow <amount> <person> [daily_rate]"
	queryBorrowUsage = "query_borrow [person]"
	repayUsage       = "repay <amount> <person>"
	queryDetailUsage = "query_detail"
)

// LedgerPlugin exposes the ledger engine as chat commands.
type LedgerPlugin struct {
	engine *ledger.Engine
}

// NewLedgerPlugin creates the plugin.
func NewLedgerPlugin(engine *ledger.Engine) *LedgerPlugin {
	return &LedgerPlugin{engine: engine}
}

// Commands returns the plugin's chat commands.
func (p *LedgerPlugin) Commands() []Command {
	return []Command{
		{Name: "add_borrow", Mutates: true, Usage: addBorrowUsage, Summary: "Lend money, optionally at a daily interest rate", Handler: p.addBorrow},
		{Name: "query_borrow", Usage: queryBorrowUsage, Summary: "Show what one or all borrowers owe", Handler: p.queryBorrow},
		{Name: "repay", Mutates: true, Usage: repayUsage, Summary: "Record a repayment", Handler: p.repay},
		{Name: "query_detail", Usage: queryDetailUsage, Summary: "Show the transaction log", Handler: p.queryDetail},
	}
}

func (p *LedgerPlugin) addBorrow(_ context.Context, _ Message, args []string) (Reply, error) {
	if len(args) < 2 {
		return Reply{}, usage(addBorrowUsage)
	}
	amount, err := parseNumber(args[0], "amount")
	if err != nil {
		return Reply{}, err
	}
	rate := 0.0
	if len(args) > 2 {
		if rate, err = parseNumber(args[2], "daily rate"); err != nil {
			return Reply{}, err
		}
	}

	res, err := p.engine.AddBorrow(args[1], amount, rate)
	if err != nil {
		return Reply{}, err
	}
	acc := res.Account
	if res.TopUp {
		return Reply{Text: fmt.Sprintf("Recorded: %s borrowed another %s; principal is now %s (daily rate stays %s)",
			acc.Person, money(res.Amount), money(acc.Principal), percent(acc.DailyRate))}, nil
	}
	if acc.DailyRate == 0 {
		return Reply{Text: fmt.Sprintf("Recorded: %s borrowed %s interest-free", acc.Person, money(res.Amount))}, nil
	}
	return Reply{Text: fmt.Sprintf("Recorded: %s borrowed %s at %s per day",
		acc.Person, money(res.Amount), percent(acc.DailyRate))}, nil
}

func (p *LedgerPlugin) queryBorrow(_ context.Context, _ Message, args []string) (Reply, error) {
	if len(args) > 0 {
		a, err := p.engine.Query(args[0])
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: strings.Join([]string{
			a.Person,
			"- Principal: " + money(a.Principal),
			"- Daily rate: " + percent(a.DailyRate),
			fmt.Sprintf("- Days since last change: %d", a.Days),
			"- Interest: " + money(a.Interest),
			"- Total owed: " + money(a.Total),
		}, "\n")}, nil
	}

	all := p.engine.QueryAll()
	if len(all) == 0 {
		return Reply{Text: NoBorrowsMessage}, nil
	}
	rows := make([][]string, 0, len(all))
	for _, a := range all {
		rows = append(rows, []string{
			a.Person, money(a.Principal), percent(a.DailyRate),
			strconv.Itoa(a.Days), money(a.Interest), money(a.Total),
		})
	}
	return Reply{Text: "Outstanding loans:\n" + renderTable(
		[]string{"Person", "Principal", "Rate/day", "Days", "Interest", "Total"}, rows)}, nil
}

func (p *LedgerPlugin) repay(_ context.Context, _ Message, args []string) (Reply, error) {
	if len(args) < 2 {
		return Reply{}, usage(repayUsage)
	}
	amount, err := parseNumber(args[0], "amount")
	if err != nil {
		return Reply{}, err
	}
	s, err := p.engine.Repay(args[1], amount)
	if err != nil {
		return Reply{}, err
	}
	if s.Settled {
		text := fmt.Sprintf("%s has fully settled: paid %s against %s owed (%s principal + %s interest)",
			s.Person, money(s.Paid), money(s.Owed.Total), money(s.Owed.Principal), money(s.Owed.Interest))
		if s.Surplus > 0 {
			text += "\nSurplus to return: " + money(s.Surplus)
		}
		return Reply{Text: text}, nil
	}
	return Reply{Text: fmt.Sprintf("Received %s from %s; %s owed before payment, principal remaining %s",
		money(s.Paid), s.Person, money(s.Owed.Total), money(s.Remaining))}, nil
}

func (p *LedgerPlugin) queryDetail(_ context.Context, _ Message, _ []string) (Reply, error) {
	txs := p.engine.Transactions()
	if len(txs) == 0 {
		return Reply{Text: NoTransactionsMessage}, nil
	}
	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		rate := ""
		if tx.Type == ledger.TxBorrow {
			rate = percent(tx.DailyRate)
		}
		rows = append(rows, []string{
			tx.Time.Format(ledger.TimeLayout), tx.Person, string(tx.Type), money(tx.Amount), rate,
		})
	}
	return Reply{Text: "Transactions:\n" + renderTable(
		[]string{"Time", "Person", "Type", "Amount", "Rate/day"}, rows)}, nil
}

func parseNumber(s, what string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, apperr.New(apperr.ErrInvalidArguments, "%s must be a number, got %q", what, s)
	}
	return v, nil
}
