// Package cmd contains the wallet commands.
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/spf13/cobra"
)

var (
	accountName string
	accountPath string
	nodeURL     string
)

const keyExtension = ".ecdsa"

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "node.ecdsa", "Name of the private key file.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringVarP(&nodeURL, "url", "u", "http://localhost:8080", "Url of the node public API.")
}

var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage node keys and talk to a powchain node",
}

// Execute runs the command selected on the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getPrivateKeyPath() string {
	name := accountName
	if !strings.HasSuffix(name, keyExtension) {
		name += keyExtension
	}

	return filepath.Join(accountPath, name)
}

// =============================================================================

var client = http.Client{
	Timeout: 10 * time.Second,
}

// call sends the request to the node and decodes the JSON response into
// dataRecv. Error responses are returned with the message from the node.
func call(req *http.Request, dataRecv any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var er errs.Response
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &er); err != nil || er.Error == "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, data)
		}
		return fmt.Errorf("status %d: %w", resp.StatusCode, errors.New(er.Error))
	}

	if dataRecv == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(dataRecv)
}
