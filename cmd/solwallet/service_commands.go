package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kjansen/solwallet/client"
	"github.com/urfave/cli/v2"
)

func serviceCommands() *cli.Command {
	return &cli.Command{
		Name:  "service",
		Usage: "Commands for the service's demo wallet pair",
		Subcommands: []*cli.Command{
			serviceInfoCommand(),
			serviceBalanceCommand(),
			serviceSendCommand(),
			serviceHistoryCommand(),
		},
	}
}

func serviceInfoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show the service wallet addresses and network",
		Flags: []cli.Flag{serverFlag(), jsonFlag()},
		Action: func(c *cli.Context) error {
			cl := client.NewClient(c.String("server"), nil, newCLILogger())

			info, err := cl.WalletInfo(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get wallet info: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.MarshalIndent(info, "", "  ")
				fmt.Println(string(data))
			} else {
				fmt.Printf("Network:   %s\n", info.Network)
				fmt.Printf("Sender:    %s\n", info.SenderAddress)
				fmt.Printf("Recipient: %s\n", info.RecipientAddress)
			}

			return nil
		},
	}
}

func serviceBalanceCommand() *cli.Command {
	return &cli.Command{
		Name:    "balance",
		Aliases: []string{"bal"},
		Usage:   "Show both service wallet balances",
		Flags:   []cli.Flag{serverFlag(), jsonFlag()},
		Action: func(c *cli.Context) error {
			cl := client.NewClient(c.String("server"), nil, newCLILogger())

			balances, err := cl.ServiceBalance(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get balances: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.MarshalIndent(balances, "", "  ")
				fmt.Println(string(data))
			} else {
				fmt.Printf("Sender:    %.9f SOL (%d lamports)\n", balances.SenderBalance, balances.SenderBalanceLamports)
				fmt.Printf("Recipient: %.9f SOL (%d lamports)\n", balances.RecipientBalance, balances.RecipientBalanceLamports)
			}

			return nil
		},
	}
}

func serviceSendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Transfer SOL from the service sender to the service recipient",
		ArgsUsage: "AMOUNT_SOL",
		Flags:     []cli.Flag{serverFlag(), jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("amount is required")
			}

			var amount float64
			if _, err := fmt.Sscanf(c.Args().Get(0), "%f", &amount); err != nil {
				return fmt.Errorf("invalid amount %q: %w", c.Args().Get(0), err)
			}

			cl := client.NewClient(c.String("server"), nil, newCLILogger())

			if !c.Bool("json") {
				fmt.Fprintf(os.Stderr, "Submitting service transfer of %.9f SOL...\n", amount)
			}

			result, err := cl.ServiceSend(context.Background(), amount)
			if err != nil {
				return fmt.Errorf("send failed: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.MarshalIndent(result, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			if result.Success {
				fmt.Printf("✓ Transfer confirmed\n")
				fmt.Printf("  Signature: %s\n", result.TransactionSignature)
			} else {
				fmt.Printf("✗ Transfer failed: %s\n", result.Error)
			}
			fmt.Printf("  Sender:    %.9f → %.9f SOL\n", result.PreBalanceSender, result.PostBalanceSender)
			fmt.Printf("  Recipient: %.9f → %.9f SOL\n", result.PreBalanceRecipient, result.PostBalanceRecipient)

			return nil
		},
	}
}

func serviceHistoryCommand() *cli.Command {
	return &cli.Command{
		Name:    "history",
		Aliases: []string{"txns", "tx"},
		Usage:   "List the service sender's recent transactions",
		Flags:   []cli.Flag{serverFlag(), jsonFlag()},
		Action: func(c *cli.Context) error {
			cl := client.NewClient(c.String("server"), nil, newCLILogger())

			transactions, err := cl.ServiceHistory(context.Background())
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

			fmt.Printf("Found %d transaction(s):\n\n", len(transactions))
			for i, txn := range transactions {
				fmt.Printf("[%d] Signature: %s\n", i+1, txn.Signature)
				printTransactionBody(&txn, "    ")
				fmt.Println()
			}

			return nil
		},
	}
}
