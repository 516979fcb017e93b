package ledger

import (
	"fmt"
	"time"
)

// fileDoc is the on-disk shape of the ledger.
type fileDoc struct {
	Borrowers    map[string]borrowerDoc `json:"borrowers"`
	Transactions []transactionDoc       `json:"transactions"`
}

type borrowerDoc struct {
	Amount    float64 `json:"amount"`
	DailyRate float64 `json:"daily_rate"`
	Time      string  `json:"time"`
}

type transactionDoc struct {
	Person    string   `json:"person"`
	Amount    float64  `json:"amount"`
	Type      TxType   `json:"type"`
	DailyRate *float64 `json:"daily_rate,omitempty"`
	Time      string   `json:"time"`
}

func encodeState(borrowers map[string]*Account, txs []Transaction) fileDoc {
	doc := fileDoc{
		Borrowers:    make(map[string]borrowerDoc, len(borrowers)),
		Transactions: make([]transactionDoc, 0, len(txs)),
	}
	for name, acc := range borrowers {
		doc.Borrowers[name] = borrowerDoc{
			Amount:    acc.Principal,
			DailyRate: acc.DailyRate,
			Time:      acc.LastUpdate.Format(TimeLayout),
		}
	}
	for _, tx := range txs {
		td := transactionDoc{
			Person: tx.Person,
			Amount: tx.Amount,
			Type:   tx.Type,
			Time:   tx.Time.Format(TimeLayout),
		}
		if tx.Type == TxBorrow {
			rate := tx.DailyRate
			td.DailyRate = &rate
		}
		doc.Transactions = append(doc.Transactions, td)
	}
	return doc
}

func decodeState(doc fileDoc) (map[string]*Account, []Transaction, error) {
	borrowers := make(map[string]*Account, len(doc.Borrowers))
	for name, b := range doc.Borrowers {
		t, err := parseTime(b.Time)
		if err != nil {
			return nil, nil, fmt.Errorf("ledger: borrower %q: %w", name, err)
		}
		borrowers[name] = &Account{
			Person:     name,
			Principal:  b.Amount,
			DailyRate:  b.DailyRate,
			LastUpdate: t,
		}
	}
	txs := make([]Transaction, 0, len(doc.Transactions))
	for i, td := range doc.Transactions {
		t, err := parseTime(td.Time)
		if err != nil {
			return nil, nil, fmt.Errorf("ledger: transaction %d: %w", i, err)
		}
		tx := Transaction{
			Person: td.Person,
			Amount: td.Amount,
			Type:   td.Type,
			Time:   t,
		}
		if td.DailyRate != nil {
			tx.DailyRate = *td.DailyRate
		}
		txs = append(txs, tx)
	}
	return borrowers, txs, nil
}

func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.Local)
}
