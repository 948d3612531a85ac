package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the tip and weight of the node chain",
	Run:   statusRun,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusRun(cmd *cobra.Command, args []string) {
	req, err := http.NewRequest(http.MethodGet, nodeURL+"/v1/chain/status", nil)
	if err != nil {
		log.Fatal(err)
	}

	var status struct {
		LatestBlockHash  string `json:"latest_block_hash"`
		LatestBlockIndex uint64 `json:"latest_block_index"`
		ChainLength      int    `json:"chain_length"`
		CumulativeWork   string `json:"cumulative_work"`
		NextDifficulty   uint   `json:"next_difficulty"`
		KnownPeers       []struct {
			Host string `json:"host"`
		} `json:"known_peers"`
	}
	if err := call(req, &status); err != nil {
		log.Fatal(err)
	}

	color.Cyan("tip %d %s", status.LatestBlockIndex, status.LatestBlockHash)
	fmt.Println("length         ", status.ChainLength)
	fmt.Println("cumulative work", status.CumulativeWork)
	fmt.Println("next difficulty", status.NextDifficulty)
	for _, pr := range status.KnownPeers {
		fmt.Println("peer           ", pr.Host)
	}
}
