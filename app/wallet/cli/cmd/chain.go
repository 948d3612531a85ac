package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/signature"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var chainVerify bool

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print the chain held by the node",
	Run:   chainRun,
}

func init() {
	rootCmd.AddCommand(chainCmd)
	chainCmd.Flags().BoolVarP(&chainVerify, "verify", "v", true, "Validate the chain locally.")
}

func chainRun(cmd *cobra.Command, args []string) {
	req, err := http.NewRequest(http.MethodGet, nodeURL+"/v1/chain", nil)
	if err != nil {
		log.Fatal(err)
	}

	var blocks []database.Block
	if err := call(req, &blocks); err != nil {
		log.Fatal(err)
	}

	header := color.New(color.FgCyan, color.Bold)
	for _, block := range blocks {
		header.Printf("block %d", block.Index)
		fmt.Printf("  difficulty %d  nonce %d  %s\n", block.Difficulty, block.Nonce, block.Time().Format("2006-01-02 15:04:05.000"))
		color.Green("  hash     %s", block.Hash())
		fmt.Printf("  previous %s\n", block.PrevBlockHash)

		for _, tx := range block.Transactions {
			text, address, err := signature.PayloadAddress(tx)
			if err != nil {
				color.Yellow("  payload  %q", tx)
				continue
			}
			fmt.Printf("  payload  %q from %s\n", text, address)
		}
	}

	if !chainVerify {
		return
	}

	if err := database.ValidateChain(blocks, nil); err != nil {
		color.Red("chain is not valid: %s", err)
		return
	}

	color.Green("chain is valid: blocks[%d]: work[%s]", len(blocks), database.CumulativeWork(blocks).Dec())
}
