package state_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/blockchain/storage/memory"
	"github.com/holiman/uint256"
)

var genesisDate = time.UnixMilli(1700000000000).UTC()

func ifErrFailNow(t *testing.T, err error) {
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

func newState(t *testing.T, host string) (*state.State, *memory.Memory) {
	storage, err := memory.New()
	ifErrFailNow(t, err)

	difficulty := uint(1)
	st, err := state.New(state.Config{
		Host:       host,
		Genesis:    genesis.Genesis{Date: genesisDate, Difficulty: &difficulty},
		Storage:    storage,
		KnownPeers: peer.NewPeerSet(),
		EvHandler:  func(v string, args ...any) { t.Logf(v, args...) },
	})
	ifErrFailNow(t, err)

	return st, storage
}

// heavierChain builds a chain sharing the test genesis with blocks mined at
// difficulty 2.
func heavierChain(t *testing.T, blocks int) []database.Block {
	chain := []database.Block{database.NewGenesis(genesisDate, 1)}

	for i := 0; i < blocks; i++ {
		block, err := database.POW(context.Background(), database.POWArgs{
			PrevBlock:    chain[len(chain)-1],
			Difficulty:   2,
			Transactions: []string{"remote"},
			TimeStamp:    genesisDate.Add(time.Duration(i+1) * time.Second),
		})
		ifErrFailNow(t, err)
		chain = append(chain, block)
	}

	return chain
}

func Test_New(t *testing.T) {
	st, storage := newState(t, "localhost:9080")

	chain := st.RetrieveChain()
	if chain.Len() != 1 {
		t.Fatalf("Should start with only the genesis block, got %d blocks.", chain.Len())
	}

	gen := chain.Genesis()
	if gen.PrevBlockHash != database.GenesisPrevHash || gen.Difficulty != 1 {
		t.Logf("got: %s", gen)
		t.Fatalf("Should create the genesis block from the genesis information.")
	}

	stored, err := storage.ReadAll()
	ifErrFailNow(t, err)
	if len(stored) != 1 || stored[0].Hash() != gen.Hash() {
		t.Fatalf("Should write the genesis block to storage.")
	}

	// A second state over the same storage loads the chain.
	reloaded, err := state.New(state.Config{Storage: storage})
	ifErrFailNow(t, err)
	if reloaded.RetrieveLatestBlock().Hash() != gen.Hash() {
		t.Fatalf("Should load the stored chain.")
	}
}

func Test_MineNewBlock(t *testing.T) {
	st, storage := newState(t, "localhost:9080")

	block, err := st.MineNewBlock(context.Background(), "hello")
	ifErrFailNow(t, err)

	if block.Index != 1 || len(block.Transactions) != 1 || block.Transactions[0] != "hello" {
		t.Logf("got: %s", block)
		t.Fatalf("Should mine a block holding the payload.")
	}

	if !strings.HasPrefix(block.Hash(), "0") {
		t.Fatalf("Should mine at the genesis difficulty, got %s.", block.Hash())
	}

	if st.RetrieveLatestBlock().Hash() != block.Hash() {
		t.Fatalf("Should make the mined block the tip.")
	}

	stored, err := storage.ReadAll()
	ifErrFailNow(t, err)
	if len(stored) != 2 {
		t.Fatalf("Should write the mined block to storage, got %d blocks.", len(stored))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := st.MineNewBlock(ctx, "cancelled"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Should stop mining when cancelled, got %v.", err)
	}
	if st.RetrieveChain().Len() != 2 {
		t.Fatalf("Should not change the chain on a cancelled mine.")
	}
}

func Test_ProcessProposedBlock(t *testing.T) {
	st, _ := newState(t, "localhost:9080")

	remote := heavierChain(t, 2)

	if err := st.ProcessProposedBlock(remote[1]); err != nil {
		t.Fatalf("Should accept a block that extends the tip: %s", err)
	}

	// Proposing the same block twice is an index mismatch.
	if err := st.ProcessProposedBlock(remote[1]); !errors.Is(err, database.ErrIndexMismatch) {
		t.Fatalf("Should reject a block that does not extend the tip, got %v.", err)
	}

	stale := remote[2]
	stale.PrevBlockHash = strings.Repeat("0", 64)
	if err := st.ProcessProposedBlock(stale); !errors.Is(err, database.ErrBrokenLinkage) {
		t.Fatalf("Should reject a block with broken linkage, got %v.", err)
	}

	if st.RetrieveChain().Len() != 2 {
		t.Fatalf("Should leave the chain unchanged after rejections.")
	}
}

func Test_ReplaceChain(t *testing.T) {
	st, storage := newState(t, "localhost:9080")

	_, err := st.MineNewBlock(context.Background(), "local")
	ifErrFailNow(t, err)

	// Local work is 2+2, the bare genesis carries only 2.
	replaced, err := st.ReplaceChain([]database.Block{database.NewGenesis(genesisDate, 1)})
	if replaced || !errors.Is(err, database.ErrNotHeavier) {
		t.Fatalf("Should keep the local chain over a lighter one, got %v.", err)
	}

	if _, err := st.ReplaceChain(nil); !errors.Is(err, database.ErrEmptyChain) {
		t.Fatalf("Should reject an empty candidate, got %v.", err)
	}

	candidate := heavierChain(t, 2)
	replaced, err = st.ReplaceChain(candidate)
	ifErrFailNow(t, err)
	if !replaced {
		t.Fatalf("Should replace the chain with a heavier one.")
	}

	if st.RetrieveLatestBlock().Hash() != candidate[2].Hash() {
		t.Fatalf("Should make the candidate tip the local tip.")
	}

	stored, err := storage.ReadAll()
	ifErrFailNow(t, err)
	if len(stored) != 3 || stored[2].Hash() != candidate[2].Hash() {
		t.Fatalf("Should rewrite the storage with the new chain.")
	}

	status := st.RetrieveStatus()
	if status.CumulativeWork != "10" || status.ChainLength != 3 || status.LatestBlockIndex != 2 {
		t.Logf("got: %+v", status)
		t.Fatalf("Should report the status of the new chain.")
	}
}

func Test_ConcurrentSnapshots(t *testing.T) {
	st, storage := newState(t, "localhost:9080")

	proposed := heavierChain(t, 3)
	candidates := [][]database.Block{heavierChain(t, 2), heavierChain(t, 4)}

	var invalid atomic.Int64
	var lighter atomic.Int64
	var reads atomic.Int64

	done := make(chan struct{})
	var readers sync.WaitGroup
	for range 4 {
		readers.Add(1)
		go func() {
			defer readers.Done()

			var last *uint256.Int
			for {
				select {
				case <-done:
					return
				default:
				}

				chain := st.RetrieveChain()
				if err := database.ValidateChain(chain.Blocks(), nil); err != nil {
					invalid.Add(1)
				}

				// Appends and replacements only ever add work.
				work := chain.Work()
				if last != nil && work.Lt(last) {
					lighter.Add(1)
				}
				last = work
				reads.Add(1)
			}
		}()
	}

	var writers sync.WaitGroup
	writers.Add(3)
	go func() {
		defer writers.Done()
		for i := range 5 {
			st.MineNewBlock(context.Background(), fmt.Sprintf("local-%d", i))
		}
	}()
	go func() {
		defer writers.Done()
		for _, block := range proposed[1:] {
			st.ProcessProposedBlock(block)
		}
	}()
	go func() {
		defer writers.Done()
		for _, candidate := range candidates {
			st.ReplaceChain(candidate)
		}
	}()
	writers.Wait()

	close(done)
	readers.Wait()

	if n := invalid.Load(); n != 0 {
		t.Fatalf("Should only ever observe valid chains, got %d invalid of %d reads.", n, reads.Load())
	}

	if n := lighter.Load(); n != 0 {
		t.Fatalf("Should never observe the chain lose work, got %d of %d reads.", n, reads.Load())
	}

	final := st.RetrieveChain()
	stored, err := storage.ReadAll()
	ifErrFailNow(t, err)
	if len(stored) != final.Len() || stored[len(stored)-1].Hash() != final.Latest().Hash() {
		t.Logf("got: stored[%d] chain[%d]", len(stored), final.Len())
		t.Fatalf("Should keep the storage in step with the chain.")
	}
}

func Test_Network(t *testing.T) {
	remote := heavierChain(t, 3)

	var mu sync.Mutex
	var added []peer.Peer
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/node/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(peer.PeerStatus{
			LatestBlockHash:  remote[3].Hash(),
			LatestBlockIndex: 3,
			ChainLength:      4,
			CumulativeWork:   database.CumulativeWork(remote).Dec(),
			KnownPeers:       []peer.Peer{peer.New("localhost:9181")},
		})
	})
	mux.HandleFunc("GET /v1/node/chain", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(remote)
	})
	mux.HandleFunc("POST /v1/node/peers", func(w http.ResponseWriter, r *http.Request) {
		var pr peer.Peer
		json.NewDecoder(r.Body).Decode(&pr)
		mu.Lock()
		added = append(added, pr)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	remotePeer := peer.New(strings.TrimPrefix(srv.URL, "http://"))

	st, _ := newState(t, "localhost:9080")
	if !st.AddKnownPeer(remotePeer) {
		t.Fatalf("Should add the remote peer.")
	}
	if st.AddKnownPeer(peer.New("localhost:9080")) {
		t.Fatalf("Should not add this node as a peer.")
	}

	status, err := st.NetRequestPeerStatus(remotePeer)
	ifErrFailNow(t, err)
	if status.CumulativeWork != "14" || len(status.KnownPeers) != 1 {
		t.Logf("got: %+v", status)
		t.Fatalf("Should decode the peer status.")
	}

	blocks, err := st.NetRequestPeerChain(remotePeer)
	ifErrFailNow(t, err)
	if len(blocks) != 4 || blocks[3].Hash() != remote[3].Hash() {
		t.Fatalf("Should decode the peer chain with the same hashes.")
	}

	replaced, err := st.ReplaceChain(blocks)
	ifErrFailNow(t, err)
	if !replaced {
		t.Fatalf("Should replace the chain with the peer chain.")
	}

	st.NetSendPeersToPeers()

	mu.Lock()
	defer mu.Unlock()
	if len(added) != 1 || added[0].Host != "localhost:9080" {
		t.Logf("got: %v", added)
		t.Fatalf("Should announce this node to the peer.")
	}
}
