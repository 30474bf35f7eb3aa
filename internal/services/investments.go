package services

import (
	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// CurrencyConverter converts an amount in a foreign currency to BRL.
type CurrencyConverter interface {
	ToLocal(amount decimal.Decimal, currency core.Currency) decimal.Decimal
}

// InvestmentBalance is the running position of one investment in its own
// currency: contributions and yields add, withdrawals subtract.
func InvestmentBalance(txs []core.InvestmentTransaction) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range txs {
		switch tx.Kind {
		case core.Contribution, core.Yield:
			balance = balance.Add(tx.Amount)
		case core.Withdrawal:
			balance = balance.Sub(tx.Amount)
		}
	}
	return balance
}

// InvestmentPosition is one investment with its balance in its own currency
// and converted to BRL.
type InvestmentPosition struct {
	Investment   core.Investment `json:"investimento"`
	Balance      decimal.Decimal `json:"saldo"`
	BalanceLocal decimal.Decimal `json:"saldoBRL"`
}

// WalletSummary groups the positions of one wallet.
type WalletSummary struct {
	Wallet    core.InvestmentWallet `json:"carteira"`
	Positions []InvestmentPosition  `json:"investimentos"`
	Total     decimal.Decimal       `json:"totalBRL"`
}

// WalletTotal sums the BRL value of the active investments of a wallet.
// txsByInvestment maps investment ID to its transactions.
func WalletTotal(wallet core.InvestmentWallet, investments []core.Investment, txsByInvestment map[string][]core.InvestmentTransaction, conv CurrencyConverter) WalletSummary {
	ws := WalletSummary{Wallet: wallet, Positions: []InvestmentPosition{}, Total: decimal.Zero}
	for _, inv := range investments {
		if inv.WalletID != wallet.ID || !inv.Active {
			continue
		}
		bal := InvestmentBalance(txsByInvestment[inv.ID])
		local := bal
		if inv.Currency != core.BRL && conv != nil {
			local = conv.ToLocal(bal, inv.Currency)
		}
		ws.Positions = append(ws.Positions, InvestmentPosition{
			Investment:   inv,
			Balance:      bal,
			BalanceLocal: local,
		})
		ws.Total = ws.Total.Add(local)
	}
	return ws
}
