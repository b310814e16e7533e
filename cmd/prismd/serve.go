package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/luxfi/prism/internal/ark"
	"github.com/luxfi/prism/internal/config"
	"github.com/luxfi/prism/internal/dropbox"
	"github.com/luxfi/prism/internal/epoch"
	"github.com/luxfi/prism/internal/flood"
	"github.com/luxfi/prism/internal/logging"
	"github.com/luxfi/prism/internal/metrics"
	"github.com/luxfi/prism/internal/routing"
	"github.com/luxfi/prism/internal/transport"
	"github.com/luxfi/prism/internal/wire"
)

// node bundles the per-peer protocol state this process drives: a
// transport-level identity, a flooding instance, and a routing database.
// The ARK store, dropbox store, and epoch controller exist only for the
// node this process represents and are held by runServe directly.
type node struct {
	pseudonym string
	transport *transport.Transport
	flood     *flood.Flooding
	routing   *routing.Database
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logging.New("prismd", debug)
	defer log.Sync()

	reg := prometheus.NewRegistry()
	metricsReg := metrics.New(reg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	epochName := "genesis"
	net := transport.NewMemNetwork()
	names := append([]string{self}, peers...)
	nodes := make(map[string]*node, len(names))
	for _, name := range names {
		t := transport.New(name, cfg.Send.HoldPackageSec, false, log.With("node", name))
		ch := net.Join(name, t)
		t.AddChannel(ch)
		if _, err := ch.CreateLink(ctx, names, epochName); err != nil {
			return fmt.Errorf("prismd: linking %s: %w", name, err)
		}
		fl := flood.New(name, epochName, flood.Policy{
			MaxHops:       cfg.Flood.MaxHops,
			GossipR:       float64(cfg.Flood.GossipR),
			SpreadSeconds: cfg.Flood.SpreadSeconds.Seconds(),
			ViaDirectOnly: cfg.Flood.ViaDirectOnly,
		}, t, log.With("node", name))
		rt := routing.NewDatabase(name, cfg.LinkState.HopsMax, epochName, log.With("node", name))

		nodes[name] = &node{pseudonym: name, transport: t, flood: fl, routing: rt}
		go fl.Listen(ctx)
	}

	selfNode := nodes[self]

	arkStore := ark.NewStore(log.With("component", "ark"))
	dropboxStore := dropbox.NewStore(log.With("component", "dropbox"))

	// Any inbound STORE_FRAGMENT message this node's transport sees gets
	// handed straight to the dropbox store; reconstructing the
	// pseudonym share from the wire message is the oblivious-FIND
	// caller's job (internal/dropbox.FindMatch), not the transport
	// glue's.
	storeHook := transport.NewHook(func(pkg transport.Package) bool {
		return pkg.Message.Type() == wire.TypeStoreFragment
	})
	selfNode.transport.RegisterHook(storeHook)
	go func() {
		for pkg := range storeHook.C {
			frag := dropbox.Fragment{
				FragmentID: pkg.Message.GetString(wire.FieldFragmentID),
				Ciphertext: pkg.Message.GetBytes(wire.FieldData),
			}
			if err := dropboxStore.StoreFragment(frag); err != nil {
				log.With("error", err, "fragment_id", frag.FragmentID).Warn("rejected duplicate fragment store")
			}
		}
	}()

	genesis := epoch.NewGenesis(nil, role, nil, []byte(selfNode.pseudonym))
	genesis.State = epoch.Running
	ctrl := epoch.NewController(genesis, log.With("component", "epoch"))
	ctrl.OnShutdown = func(e *epoch.Epoch) {
		log.With("epoch", e.Name).Info("epoch shut down")
	}
	go ctrl.Run(ctx)

	key, err := ark.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("prismd: generating ARK signing key: %w", err)
	}
	selfARK := wire.New(wire.TypeARK).
		Set(wire.FieldPseudonym, []byte(selfNode.pseudonym)).
		Set(wire.FieldName, selfNode.pseudonym).
		Set(wire.FieldEpoch, epochName).
		Set(wire.FieldPublicKey, key.PublicKeyBytes())
	arkStore.Record(selfARK, true)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		current := ctrl.Current()
		fmt.Fprintf(w, "self=%s role=%s epoch=%s state=%s peers=%d\n",
			selfNode.pseudonym, current.Role, current.Name, current.State, len(peers))
	})
	srv := &http.Server{Addr: ":9090", Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.With("error", err).Error("metrics server failed")
		}
	}()

	log.With("self", selfNode.pseudonym, "role", role, "peers", peers).Info("prismd started")
	arkTicker := time.NewTicker(cfg.ARK.SleepTime)
	defer arkTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		case <-arkTicker.C:
			metricsReg.ARKBroadcastCycles.Inc()
			metricsReg.ARKStoreSize.Set(1)
			batch := arkStore.BroadcastMessage(selfNode.pseudonym, epochName, time.Now().UnixMicro(), cfg.ARK.MaxMTU)
			if batch == nil {
				continue
			}
			signed, err := key.Sign(batch)
			if err != nil {
				log.With("error", err).Error("signing ARK batch")
				continue
			}
			selfNode.flood.Initiate(ctx, signed)
		}
	}
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Defaults(), nil
	}
	return config.Load(configPath)
}
