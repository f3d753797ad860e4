package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/itchyny/gojq"
	"github.com/kjansen/solwallet/client"
	"github.com/urfave/cli/v2"
)

func walletCommands() *cli.Command {
	return &cli.Command{
		Name:  "wallet",
		Usage: "Wallet query and transfer commands",
		Subcommands: []*cli.Command{
			walletBalanceCommand(),
			walletHistoryCommand(),
			walletTransferCommand(),
			walletWatchCommand(),
			awaitCommand(),
		},
	}
}

func serverFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "server",
		Aliases: []string{"s"},
		Value:   "http://localhost:8080",
		Usage:   "HTTP server URL",
		EnvVars: []string{"SOLWALLET_SERVER_URL"},
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "json",
		Aliases: []string{"j"},
		Usage:   "Output as JSON",
	}
}

func newCLILogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func walletBalanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Aliases:   []string{"bal"},
		Usage:     "Get the SOL balance of an account",
		ArgsUsage: "WALLET_ADDRESS",
		Flags:     []cli.Flag{serverFlag(), jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			address := c.Args().Get(0)
			cl := client.NewClient(c.String("server"), nil, newCLILogger())

			balance, err := cl.Balance(context.Background(), address)
			if err != nil {
				return fmt.Errorf("failed to get balance: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.MarshalIndent(balance, "", "  ")
				fmt.Println(string(data))
			} else {
				fmt.Printf("Address:  %s\n", address)
				fmt.Printf("Balance:  %.9f SOL\n", balance.SOL)
				fmt.Printf("Lamports: %d\n", balance.Lamports)
			}

			return nil
		},
	}
}

func walletHistoryCommand() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Aliases:   []string{"txns", "tx"},
		Usage:     "List recent transactions for an account",
		ArgsUsage: "WALLET_ADDRESS",
		Flags:     []cli.Flag{serverFlag(), jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			address := c.Args().Get(0)
			cl := client.NewClient(c.String("server"), nil, newCLILogger())

			transactions, err := cl.Transactions(context.Background(), address)
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.MarshalIndent(transactions, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			if len(transactions) == 0 {
				fmt.Println("No transactions found")
				return nil
			}

			fmt.Printf("Found %d transaction(s) for wallet %s:\n\n", len(transactions), address)
			for i, txn := range transactions {
				fmt.Printf("[%d] Signature: %s\n", i+1, txn.Signature)
				printTransactionBody(&txn, "    ")
				fmt.Println()
			}

			return nil
		},
	}
}

func walletTransferCommand() *cli.Command {
	return &cli.Command{
		Name:      "transfer",
		Aliases:   []string{"send"},
		Usage:     "Transfer SOL from a private key to a recipient",
		ArgsUsage: "RECIPIENT_ADDRESS AMOUNT_SOL",
		Flags: []cli.Flag{
			serverFlag(),
			&cli.StringFlag{
				Name:    "from-key",
				Aliases: []string{"k"},
				Usage:   "Base58 sender private key (prefer the env var over the flag)",
				EnvVars: []string{"SOLWALLET_PRIVATE_KEY"},
			},
			jsonFlag(),
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("recipient address and amount are required")
			}

			recipient := c.Args().Get(0)
			var amount float64
			if _, err := fmt.Sscanf(c.Args().Get(1), "%f", &amount); err != nil {
				return fmt.Errorf("invalid amount %q: %w", c.Args().Get(1), err)
			}

			fromKey := c.String("from-key")
			if fromKey == "" {
				return fmt.Errorf("sender private key is required (set SOLWALLET_PRIVATE_KEY or use --from-key)")
			}

			cl := client.NewClient(c.String("server"), nil, newCLILogger())

			if !c.Bool("json") {
				fmt.Fprintf(os.Stderr, "Submitting transfer of %.9f SOL to %s...\n", amount, recipient)
			}

			result, err := cl.Transfer(context.Background(), fromKey, recipient, amount)
			if err != nil {
				return fmt.Errorf("transfer failed: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.MarshalIndent(result, "", "  ")
				fmt.Println(string(data))
			} else {
				fmt.Printf("✓ Transfer confirmed\n")
				fmt.Printf("  Signature: %s\n", result.Signature)
			}

			return nil
		},
	}
}

func walletWatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-fetch an account's balance on an interval until interrupted",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			serverFlag(),
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Value:   30 * time.Second,
				Usage:   "How often to refresh the balance",
				EnvVars: []string{"BALANCE_REFRESH_INTERVAL"},
			},
			jsonFlag(),
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			address := c.Args().Get(0)
			jsonOutput := c.Bool("json")
			cl := client.NewClient(c.String("server"), nil, newCLILogger())

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			if !jsonOutput {
				fmt.Fprintf(os.Stderr, "Watching balance of %s every %v (Ctrl-C to stop)...\n", address, c.Duration("interval"))
			}

			cl.WatchBalance(ctx, address, c.Duration("interval"), func(b *client.Balance, err error) {
				if err != nil {
					fmt.Fprintf(os.Stderr, "refresh failed: %v\n", err)
					return
				}
				if jsonOutput {
					data, _ := json.Marshal(b)
					fmt.Println(string(data))
				} else {
					fmt.Printf("%s  %.9f SOL (%d lamports)\n", time.Now().Format(time.RFC3339), b.SOL, b.Lamports)
				}
			})

			return nil
		},
	}
}

func awaitCommand() *cli.Command {
	return &cli.Command{
		Name:      "await",
		Usage:     "Block until a transaction matching criteria appears in an account's history",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			serverFlag(),
			&cli.StringFlag{
				Name:  "signature",
				Usage: "Filter by exact transaction signature",
			},
			&cli.StringFlag{
				Name:  "direction",
				Usage: "Filter by direction (sent or received)",
			},
			&cli.Float64Flag{
				Name:  "amount-equal",
				Usage: "Filter by exact SOL amount (e.g., 0.42)",
			},
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Usage:   "jq filter over the transaction record that must evaluate to true (can be specified multiple times, all must match)",
				Aliases: []string{"jq"},
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Aliases: []string{"i"},
				Value:   5 * time.Second,
				Usage:   "How often to re-poll history",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Value:   5 * time.Minute,
				Usage:   "How long to wait for a matching transaction",
			},
			jsonFlag(),
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			address := c.Args().Get(0)
			signature := c.String("signature")
			direction := c.String("direction")
			amount := c.Float64("amount-equal")
			jqFilters := c.StringSlice("must-jq")
			jsonOutput := c.Bool("json")

			// Require at least one filter
			if signature == "" && direction == "" && amount == 0 && len(jqFilters) == 0 {
				return fmt.Errorf("must specify at least one filter: --signature, --direction, --amount-equal, or --must-jq")
			}

			logger := newCLILogger()

			// Compile jq filters
			compiledJQFilters := make([]*gojq.Code, len(jqFilters))
			for i, filter := range jqFilters {
				query, err := gojq.Parse(filter)
				if err != nil {
					return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
				}
				compiledJQFilters[i], err = gojq.Compile(query)
				if err != nil {
					return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
				}
			}

			cl := client.NewClient(c.String("server"), nil, logger)

			matcher := func(txn *client.Transaction) bool {
				if signature != "" && txn.Signature != signature {
					return false
				}
				if direction != "" && txn.Type != direction {
					return false
				}
				if amount != 0 && txn.Amount != amount {
					return false
				}

				// jq filters run against the transaction's JSON shape
				if len(compiledJQFilters) > 0 {
					data, err := json.Marshal(txn)
					if err != nil {
						return false
					}
					var record interface{}
					if err := json.Unmarshal(data, &record); err != nil {
						return false
					}

					for _, code := range compiledJQFilters {
						iter := code.Run(record)
						v, ok := iter.Next()
						if !ok {
							return false
						}
						if err, isErr := v.(error); isErr {
							logger.Debug("jq filter error", "error", err)
							return false
						}
						if !isTruthy(v) {
							return false
						}
					}
				}

				return true
			}

			if !jsonOutput {
				fmt.Fprintf(os.Stderr, "Waiting for transaction on wallet %s...\n", address)
				if signature != "" {
					fmt.Fprintf(os.Stderr, "  Signature: %s\n", signature)
				}
				if direction != "" {
					fmt.Fprintf(os.Stderr, "  Direction: %s\n", direction)
				}
				if amount != 0 {
					fmt.Fprintf(os.Stderr, "  Amount: %.9f SOL\n", amount)
				}
				for _, filter := range jqFilters {
					fmt.Fprintf(os.Stderr, "  jq Filter: %s\n", filter)
				}
				fmt.Fprintf(os.Stderr, "  Timeout: %v\n\n", c.Duration("timeout"))
			}

			ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
			defer cancel()

			txn, err := awaitTransaction(ctx, cl, address, c.Duration("poll-interval"), matcher)
			if err != nil {
				return fmt.Errorf("failed to await transaction: %w", err)
			}

			if jsonOutput {
				data, err := json.MarshalIndent(txn, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal transaction: %w", err)
				}
				fmt.Println(string(data))
			} else {
				printTransactionDetailed(txn)
			}

			return nil
		},
	}
}

// awaitTransaction polls the account's recent history until a record matching
// the supplied predicate appears, or the context expires.
func awaitTransaction(ctx context.Context, cl *client.Client, address string, interval time.Duration, match func(*client.Transaction) bool) (*client.Transaction, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		transactions, err := cl.Transactions(ctx, address)
		if err == nil {
			for i := range transactions {
				if match(&transactions[i]) {
					return &transactions[i], nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timed out waiting for matching transaction: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// isTruthy checks if a jq result value is truthy.
// In jq, false and null are falsy, everything else is truthy.
func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	// Everything else (numbers, strings, objects, arrays) is truthy
	return true
}

func printTransactionDetailed(txn *client.Transaction) {
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("✓ Transaction Found")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Signature:  %s\n", txn.Signature)
	printTransactionBody(txn, "")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

func printTransactionBody(txn *client.Transaction, indent string) {
	fmt.Printf("%sType:       %s\n", indent, txn.Type)
	fmt.Printf("%sAmount:     %.9f SOL\n", indent, txn.Amount)
	fmt.Printf("%sStatus:     %s\n", indent, txn.Status)
	fmt.Printf("%sTimestamp:  %s\n", indent, txn.Timestamp)
	if txn.Recipient != nil {
		fmt.Printf("%sRecipient:  %s\n", indent, *txn.Recipient)
	}
	if txn.Sender != nil {
		fmt.Printf("%sSender:     %s\n", indent, *txn.Sender)
	}
	fmt.Printf("%sSlot:       %d\n", indent, txn.Slot)
	if txn.Fee != nil {
		fmt.Printf("%sFee:        %d lamports\n", indent, *txn.Fee)
	}
	if txn.PartiesInferred {
		fmt.Printf("%sNote:       counterparty inferred from loaded addresses\n", indent)
	}
}
