// Command sensenrich runs the stream-enrichment service: it consumes
// sensor-observation records from a broker topic, enriches desired
// object types with images fetched from an external HTTP service, and
// republishes to an output topic.
//
// Invoked with no arguments it reads service.ini, then fans out into
// num_processes identical single-instance child processes. Each child is
// an independent pipeline sharing no state with its siblings; the
// instances coordinate only through the broker consumer group.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/sensenrich/broker"
	"github.com/hazyhaar/sensenrich/config"
	"github.com/hazyhaar/sensenrich/imageclient"
	"github.com/hazyhaar/sensenrich/pipeline"
)

func main() {
	configPath := flag.String("config", "service.ini", "path to the INI configuration file")
	single := flag.Bool("single", false, "run one pipeline instance instead of fanning out")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	if *single {
		err = runSingle(ctx, *configPath, log)
	} else {
		err = fanOut(ctx, *configPath, log)
	}
	if err != nil {
		log.Error("sensenrich exited with error", slog.Any("err", err))
		os.Exit(1)
	}
}

// fanOut re-execs this binary num_processes times in single mode and
// waits for every child. A SIGTERM or SIGINT delivered to the parent is
// forwarded to each child so all instances drain; the parent exits 0
// once each child has.
func fanOut(ctx context.Context, configPath string, log *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	n := cfg.NumProcesses
	if n < 1 {
		n = 1
	}
	if n == 1 {
		return runSingle(ctx, configPath, log)
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	log.Info("fanning out pipeline instances", slog.Int("num_processes", n))

	cmds := make([]*exec.Cmd, 0, n)
	for i := 0; i < n; i++ {
		cmd := exec.Command(self, "-single", "-config", configPath)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			for _, c := range cmds {
				c.Process.Signal(syscall.SIGTERM)
				c.Wait()
			}
			return fmt.Errorf("start instance %d: %w", i, err)
		}
		cmds = append(cmds, cmd)
	}

	go func() {
		<-ctx.Done()
		for _, c := range cmds {
			c.Process.Signal(syscall.SIGTERM)
		}
	}()

	var firstErr error
	for i, cmd := range cmds {
		if err := cmd.Wait(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("instance %d: %w", i, err)
		}
	}
	return firstErr
}

// runSingle builds and runs one pipeline instance until ctx is
// cancelled, then drains it.
func runSingle(ctx context.Context, configPath string, log *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log.Info("configuration loaded",
		slog.String("consumer_topic", cfg.ConsumerTopic),
		slog.String("producer_topic", cfg.ProducerTopic),
		slog.Int("num_processes", cfg.NumProcesses),
	)

	autoCommit, err := cfg.AutoCommit()
	if err != nil {
		return err
	}
	kb, err := broker.NewKafkaBroker(cfg.ConsumerConfig, cfg.ProducerConfig, cfg.ConsumerTopic, autoCommit)
	if err != nil {
		return err
	}

	// The image service runs on the operator's own network, so private
	// and loopback endpoints are expected here.
	imgClient, err := imageclient.New(cfg.ImageService.URL(), imageclient.Options{AllowPrivateHost: true})
	if err != nil {
		return err
	}

	sup := pipeline.New(kb, imgClient, pipeline.Options{
		ConsumerTopic: cfg.ConsumerTopic,
		ProducerTopic: cfg.ProducerTopic,
		IsDesired:     cfg.IsDesired,
		Log:           log,
	})

	if err := sup.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutdown signal received, draining pipeline")
	return sup.Close()
}
