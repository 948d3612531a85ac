package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/powchain/app/services/node/handlers"
	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/ardanlabs/powchain/foundation/blockchain/signature"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/powchain/foundation/events"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

const (
	success = "✓"
	failed  = "✗"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

var genesisDate = time.UnixMilli(1700000000000).UTC()

// fakeWorker records the signals the handlers send.
type fakeWorker struct {
	mu       sync.Mutex
	payloads []string
	shares   int
	updates  int
}

func (fw *fakeWorker) Shutdown()           {}
func (fw *fakeWorker) SignalCancelMining() {}

func (fw *fakeWorker) SignalStartMining(payload string) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.payloads = append(fw.payloads, payload)
	return true
}

func (fw *fakeWorker) SignalShareChain() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.shares++
}

func (fw *fakeWorker) SignalPeerUpdates() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.updates++
}

type testNode struct {
	state   *state.State
	worker  *fakeWorker
	public  http.Handler
	private http.Handler
}

func newTestNode(t *testing.T) testNode {
	storage, err := memory.New()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the storage: %s", failed, err)
	}

	difficulty := uint(1)
	st, err := state.New(state.Config{
		Host:    "localhost:9080",
		Genesis: genesis.Genesis{Date: genesisDate, Difficulty: &difficulty},
		Storage: storage,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %s", failed, err)
	}

	fw := fakeWorker{}
	st.Worker = &fw

	key, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the private key: %s", failed, err)
	}

	cfg := handlers.MuxConfig{
		Shutdown:   make(chan os.Signal, 1),
		Log:        zap.NewNop().Sugar(),
		State:      st,
		Evts:       events.New(),
		PrivateKey: key,
	}

	return testNode{
		state:   st,
		worker:  &fw,
		public:  handlers.PublicMux(cfg),
		private: handlers.PrivateMux(cfg),
	}
}

func serve(h http.Handler, method string, path string, body any) *httptest.ResponseRecorder {
	var data []byte
	if body != nil {
		data, _ = json.Marshal(body)
	}

	r := httptest.NewRequest(method, path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	return w
}

func serveRaw(h http.Handler, method string, path string, body io.Reader) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, body)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	return w
}

// mine extends the blocks by one block at the specified difficulty.
func mine(t *testing.T, blocks []database.Block, difficulty uint, tx string) []database.Block {
	block, err := database.POW(context.Background(), database.POWArgs{
		PrevBlock:    blocks[len(blocks)-1],
		Difficulty:   difficulty,
		Transactions: []string{tx},
		TimeStamp:    genesisDate.Add(time.Duration(len(blocks)) * time.Second),
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to mine a block: %s", failed, err)
	}

	return append(blocks, block)
}

func Test_Public(t *testing.T) {
	t.Log("Given the need to use the public API.")
	{
		node := newTestNode(t)

		w := serve(node.public, http.MethodGet, "/v1/chain", nil)
		var blocks []database.Block
		json.NewDecoder(w.Body).Decode(&blocks)
		if w.Code != http.StatusOK || len(blocks) != 1 || blocks[0].PrevBlockHash != database.GenesisPrevHash {
			t.Fatalf("\t%s\tShould get back the genesis chain, got %d.", failed, w.Code)
		}
		t.Logf("\t%s\tShould get back the genesis chain.", success)

		w = serve(node.public, http.MethodGet, "/v1/chain/status", nil)
		var status struct {
			CumulativeWork string `json:"cumulative_work"`
			NextDifficulty uint   `json:"next_difficulty"`
		}
		json.NewDecoder(w.Body).Decode(&status)
		if w.Code != http.StatusOK || status.CumulativeWork != "2" || status.NextDifficulty != 1 {
			t.Logf("got: %d %+v", w.Code, status)
			t.Fatalf("\t%s\tShould get back the chain status.", failed)
		}
		t.Logf("\t%s\tShould get back the chain status.", success)

		w = serve(node.public, http.MethodGet, "/v1/mine", nil)
		if w.Code != http.StatusAccepted {
			t.Fatalf("\t%s\tShould accept a mine request without text, got %d.", failed, w.Code)
		}

		w = serve(node.public, http.MethodPost, "/v1/mine", map[string]string{"text": "hello"})
		if w.Code != http.StatusAccepted {
			t.Fatalf("\t%s\tShould accept a mine request with text, got %d.", failed, w.Code)
		}

		if len(node.worker.payloads) != 2 {
			t.Fatalf("\t%s\tShould signal mining for each request, got %d.", failed, len(node.worker.payloads))
		}

		text, address, err := signature.PayloadAddress(node.worker.payloads[0])
		if err != nil || text != "Blank" || address != "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4" {
			t.Logf("got: %q %q %v", text, address, err)
			t.Fatalf("\t%s\tShould annotate a blank payload with the node key.", failed)
		}
		if text, _, _ := signature.PayloadAddress(node.worker.payloads[1]); text != "hello" {
			t.Fatalf("\t%s\tShould annotate the posted text, got %q.", failed, text)
		}
		t.Logf("\t%s\tShould annotate and queue the payloads.", success)

		w = serve(node.public, http.MethodPost, "/v1/mine", map[string]string{"text": strings.Repeat("x", 1025)})
		var er errs.Response
		json.NewDecoder(w.Body).Decode(&er)
		if w.Code != http.StatusBadRequest || er.Fields["text"] == "" {
			t.Logf("got: %d %+v", w.Code, er)
			t.Fatalf("\t%s\tShould reject text that is too long.", failed)
		}
		t.Logf("\t%s\tShould reject text that is too long.", success)

		w = serve(node.public, http.MethodGet, "/v1/broadcast", nil)
		if w.Code != http.StatusAccepted || node.worker.shares != 1 {
			t.Fatalf("\t%s\tShould signal a chain share, got %d.", failed, w.Code)
		}
		t.Logf("\t%s\tShould signal a chain share.", success)
	}
}

func Test_Private(t *testing.T) {
	t.Log("Given the need to use the node to node API.")
	{
		node := newTestNode(t)
		local := node.state.RetrieveChain().Blocks()

		remote := mine(t, local, 1, "one")
		w := serve(node.private, http.MethodPost, "/v1/node/block/propose", remote[1])
		if w.Code != http.StatusOK {
			t.Fatalf("\t%s\tShould accept a block that extends the tip, got %d: %s", failed, w.Code, w.Body)
		}
		t.Logf("\t%s\tShould accept a block that extends the tip.", success)

		w = serve(node.private, http.MethodPost, "/v1/node/block/propose", remote[1])
		if w.Code != http.StatusNotAcceptable {
			t.Fatalf("\t%s\tShould reject a block that does not extend the tip, got %d.", failed, w.Code)
		}
		t.Logf("\t%s\tShould reject a block that does not extend the tip.", success)

		// Local work is now 2+2, a single block chain of 2+2 only ties it.
		tie := mine(t, local, 1, "tie")
		w = serve(node.private, http.MethodPost, "/v1/node/chain", tie)
		if w.Code != http.StatusNotAcceptable {
			t.Fatalf("\t%s\tShould keep the local chain on equal work, got %d.", failed, w.Code)
		}
		t.Logf("\t%s\tShould keep the local chain on equal work.", success)

		heavier := mine(t, local, 3, "heavy")
		w = serve(node.private, http.MethodPost, "/v1/node/chain", heavier)
		if w.Code != http.StatusOK {
			t.Fatalf("\t%s\tShould replace the chain with a heavier one, got %d: %s", failed, w.Code, w.Body)
		}
		t.Logf("\t%s\tShould replace the chain with a heavier one.", success)

		w = serve(node.private, http.MethodGet, "/v1/node/status", nil)
		var status peer.PeerStatus
		json.NewDecoder(w.Body).Decode(&status)
		if status.LatestBlockHash != heavier[1].Hash() || status.CumulativeWork != "10" {
			t.Logf("got: %+v", status)
			t.Fatalf("\t%s\tShould report the status of the heavier chain.", failed)
		}
		t.Logf("\t%s\tShould report the status of the heavier chain.", success)

		forged := []database.Block{{PrevBlockHash: database.GenesisPrevHash, Difficulty: 200}}
		w = serve(node.private, http.MethodPost, "/v1/node/chain", forged)
		if w.Code != http.StatusNotAcceptable || node.state.RetrieveLatestBlock().Hash() != heavier[1].Hash() {
			t.Fatalf("\t%s\tShould reject a chain with an unsolvable genesis, got %d.", failed, w.Code)
		}
		t.Logf("\t%s\tShould reject a chain with an unsolvable genesis.", success)

		foreign := mine(t, []database.Block{database.NewGenesis(genesisDate, 5)}, 1, "foreign")
		w = serve(node.private, http.MethodPost, "/v1/node/chain", foreign)
		if w.Code != http.StatusNotAcceptable || node.state.RetrieveLatestBlock().Hash() != heavier[1].Hash() {
			t.Fatalf("\t%s\tShould reject a heavier chain from another genesis, got %d.", failed, w.Code)
		}
		t.Logf("\t%s\tShould reject a heavier chain from another genesis.", success)

		huge := io.MultiReader(strings.NewReader("["), strings.NewReader(strings.Repeat(" ", 33<<20)))
		w = serveRaw(node.private, http.MethodPost, "/v1/node/chain", huge)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("\t%s\tShould reject an oversized chain body, got %d.", failed, w.Code)
		}
		t.Logf("\t%s\tShould reject an oversized chain body.", success)

		big := remote[1]
		big.Transactions = []string{strings.Repeat("x", 2<<20)}
		w = serve(node.private, http.MethodPost, "/v1/node/block/propose", big)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("\t%s\tShould reject an oversized block body, got %d.", failed, w.Code)
		}
		t.Logf("\t%s\tShould reject an oversized block body.", success)

		w = serve(node.private, http.MethodPost, "/v1/node/peers", peer.New("localhost:9180"))
		if w.Code != http.StatusNoContent || node.worker.updates != 1 {
			t.Fatalf("\t%s\tShould add a new peer, got %d.", failed, w.Code)
		}

		w = serve(node.private, http.MethodPost, "/v1/node/peers", peer.New(""))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("\t%s\tShould reject a peer without a host, got %d.", failed, w.Code)
		}

		w = serve(node.private, http.MethodGet, "/v1/node/peers", nil)
		var peers []peer.Peer
		json.NewDecoder(w.Body).Decode(&peers)
		if len(peers) != 1 || peers[0].Host != "localhost:9180" {
			t.Logf("got: %v", peers)
			t.Fatalf("\t%s\tShould list the known peers.", failed)
		}
		t.Logf("\t%s\tShould manage the known peers.", success)
	}
}
