package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var mineText string

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Ask the node to mine a block holding the text",
	Run:   mineRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().StringVarP(&mineText, "text", "t", "", "Text to mine into the next block.")
	mineCmd.MarkFlagRequired("text")
}

func mineRun(cmd *cobra.Command, args []string) {
	data, err := json.Marshal(map[string]string{"text": mineText})
	if err != nil {
		log.Fatal(err)
	}

	req, err := http.NewRequest(http.MethodPost, nodeURL+"/v1/mine", bytes.NewReader(data))
	if err != nil {
		log.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		Status  string `json:"status"`
		Payload string `json:"payload"`
	}
	if err := call(req, &resp); err != nil {
		log.Fatal(err)
	}

	fmt.Println(resp.Status)
	fmt.Println(resp.Payload)
}
