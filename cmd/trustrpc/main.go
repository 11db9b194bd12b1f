// Command trustrpc is a thin CLI around client.Client: load a config
// file, dial a chain's node list, and print the result of one verified
// RPC call. It supersedes the teacher's single-purpose verify_proof /
// acct_verify_proof / verify_roots binaries with one command per
// convenience wrapper, the way a urfave/cli app groups subcommands
// instead of one flag-parsed binary per operation.
package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/example/trustrpc/client"
	"github.com/example/trustrpc/config"
	"github.com/example/trustrpc/registry"
)

func main() {
	app := &cli.App{
		Name:  "trustrpc",
		Usage: "query a chain through a trust-minimized, proof-verifying JSON-RPC client",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "path to a trustrpc config YAML file",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "node",
				Usage: "seed node URL (repeatable); overrides config boot_nodes",
			},
		},
		Commands: []*cli.Command{
			blockNumberCommand(),
			blockCommand(),
			balanceCommand(),
			gasPriceCommand(),
			waitReceiptCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "trustrpc:", err)
		os.Exit(1)
	}
}

func newClientFromFlags(c *cli.Context) (*client.Client, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cl, err := client.FromConfig(cfg, nil, nil)
	if err != nil {
		return nil, err
	}

	if nodes := c.StringSlice("node"); len(nodes) > 0 {
		seeds := make([]registry.Node, len(nodes))
		for i, url := range nodes {
			seeds[i] = registry.Node{URL: url, Capacity: 1}
		}
		cl.SeedNodes(0, seeds)
	}

	return cl, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func blockNumberCommand() *cli.Command {
	return &cli.Command{
		Name:  "block-number",
		Usage: "print the verified head block number",
		Action: func(c *cli.Context) error {
			cl, err := newClientFromFlags(c)
			if err != nil {
				return err
			}
			n, err := cl.BlockNumber(c.Context)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
}

func blockCommand() *cli.Command {
	return &cli.Command{
		Name:      "block",
		Usage:     "fetch and verify a block header",
		ArgsUsage: "[number]",
		Action: func(c *cli.Context) error {
			cl, err := newClientFromFlags(c)
			if err != nil {
				return err
			}
			var number *big.Int
			if c.Args().Len() > 0 {
				number = new(big.Int)
				if _, ok := number.SetString(c.Args().First(), 0); !ok {
					return fmt.Errorf("invalid block number %q", c.Args().First())
				}
			}
			header, err := cl.GetBlockByNumber(c.Context, number, false)
			if err != nil {
				return err
			}
			return printJSON(header)
		},
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "fetch and verify an account balance",
		ArgsUsage: "<address> [block]",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return fmt.Errorf("balance requires an address argument")
			}
			cl, err := newClientFromFlags(c)
			if err != nil {
				return err
			}
			addr := common.HexToAddress(c.Args().First())
			var blockNumber *big.Int
			if c.Args().Len() > 1 {
				blockNumber = new(big.Int)
				if _, ok := blockNumber.SetString(c.Args().Get(1), 0); !ok {
					return fmt.Errorf("invalid block number %q", c.Args().Get(1))
				}
			}
			balance, err := cl.GetBalance(c.Context, addr, blockNumber)
			if err != nil {
				return err
			}
			fmt.Println(balance.String())
			return nil
		},
	}
}

func gasPriceCommand() *cli.Command {
	return &cli.Command{
		Name:  "gas-price",
		Usage: "fetch the current gas price (unverified — see client.GasPrice)",
		Action: func(c *cli.Context) error {
			cl, err := newClientFromFlags(c)
			if err != nil {
				return err
			}
			price, err := cl.GasPrice(c.Context)
			if err != nil {
				return err
			}
			fmt.Println(price.String())
			return nil
		},
	}
}

func waitReceiptCommand() *cli.Command {
	return &cli.Command{
		Name:      "wait-receipt",
		Usage:     "poll and verify a transaction receipt until it's mined",
		ArgsUsage: "<tx-hash>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return fmt.Errorf("wait-receipt requires a transaction hash argument")
			}
			cl, err := newClientFromFlags(c)
			if err != nil {
				return err
			}
			receipt, err := cl.WaitForReceipt(c.Context, common.HexToHash(c.Args().First()))
			if err != nil {
				return err
			}
			return printJSON(receipt)
		},
	}
}
