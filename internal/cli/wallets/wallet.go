package wallets

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/julianstephens/healthchain/internal/cli"
	"github.com/julianstephens/healthchain/internal/constants"
	"github.com/julianstephens/healthchain/internal/wallet"
)

type WalletCmd struct {
	Create  WalletCreateCmd  `cmd:"" help:"Create the token wallet."`
	Show    WalletShowCmd    `cmd:"" help:"Show balance and address." default:"1"`
	History WalletHistoryCmd `cmd:"" help:"List transactions, newest first."`
	Convert WalletConvertCmd `cmd:"" help:"Convert a token amount to USD."`
	Verify  WalletVerifyCmd  `cmd:"" help:"Check the balance against the transaction log."`
}

type WalletCreateCmd struct{}

func (c *WalletCreateCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	w, err := ctx.Wallet.CreateWallet()
	if err != nil {
		return err
	}
	fmt.Println(cli.Success("Wallet ready"))
	fmt.Printf("  Address: %s\n", w.Address)
	return nil
}

type WalletShowCmd struct{}

func (c *WalletShowCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	w, err := ctx.Wallet.Wallet()
	if err != nil {
		return err
	}
	fmt.Println(cli.Box(cli.Rows([][2]string{
		{"Address", w.Address},
		{"Balance", cli.FormatTokens(w.Balance)},
		{"Value", cli.FormatUSD(ctx.Wallet.ConvertToUSD(w.Balance))},
		{"Earned", cli.FormatTokens(ctx.Wallet.ClaimedTotal())},
		{"Pending", fmt.Sprintf("%d rewards", len(ctx.Wallet.PendingRewards()))},
	})))
	return nil
}

type WalletHistoryCmd struct {
	Limit int `short:"n" help:"Show at most this many transactions (0 for all)."`
}

func (c *WalletHistoryCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	txs := ctx.Wallet.TransactionHistory()
	if len(txs) == 0 {
		fmt.Println("No transactions.")
		return nil
	}
	if c.Limit > 0 && len(txs) > c.Limit {
		txs = txs[:c.Limit]
	}
	for _, tx := range txs {
		fmt.Printf("%s  %-8s %-9s %14s  %s\n",
			tx.Timestamp.Format("2006-01-02 15:04"), tx.Type, tx.Status, cli.FormatTokens(tx.Amount), tx.Description)
	}
	return nil
}

type WalletConvertCmd struct {
	Amount string `arg:"" help:"Token amount."`
}

func (c *WalletConvertCmd) Run(ctx *cli.Context) error {
	amount, err := decimal.NewFromString(c.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", c.Amount, err)
	}
	fmt.Printf("%s = %s (rate %s USD/%s)\n",
		cli.FormatTokens(amount), cli.FormatUSD(ctx.Wallet.ConvertToUSD(amount)), wallet.MockRate, constants.TokenSymbol)
	return nil
}

type WalletVerifyCmd struct{}

func (c *WalletVerifyCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	report, err := ctx.Wallet.VerifyLedger()
	if err != nil {
		return err
	}
	if !report.Consistent {
		fmt.Println(cli.Danger(fmt.Sprintf("Balance %s does not match ledger %s",
			cli.FormatTokens(report.Balance), cli.FormatTokens(report.Ledger))))
		return fmt.Errorf("wallet balance drifted from the transaction log, run 'healthchain doctor --fix'")
	}
	fmt.Println(cli.Success("Balance matches the transaction log: " + cli.FormatTokens(report.Balance)))
	return nil
}
