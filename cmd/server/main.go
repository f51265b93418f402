package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/Tyrowin/chatrelay/internal/logging"
	"github.com/Tyrowin/chatrelay/internal/server"
	"github.com/Tyrowin/chatrelay/web"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2

	shutdownTimeout = 5 * time.Second
)

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatrelay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run(args []string) (int, error) {
	config, err := server.NewConfigFromEnv()
	if err != nil {
		return exitConfig, err
	}

	flags := pflag.NewFlagSet("chatrelay", pflag.ContinueOnError)
	flags.IntVarP(&config.Port, "port", "p", config.Port, "port to listen on")
	if err := flags.Parse(args); err != nil {
		return exitConfig, err
	}

	if err := logging.InitLog(config.LogLevel, os.Stderr); err != nil {
		return exitConfig, err
	}

	relay := server.New(config, web.Assets())
	httpServer := server.CreateServer(relay.Config().Addr(), relay.SetupRoutes())

	ln, err := server.Listen(httpServer)
	if err != nil {
		return exitRuntime, err
	}

	relay.StartHub()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.StartServer(httpServer, ln)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	code := exitOK
	select {
	case sig := <-stop:
		log.Infof("Received %s, shutting down", sig)
	case err = <-serveErr:
		code = exitRuntime
	}

	if shutdownErr := server.ShutdownServer(httpServer, shutdownTimeout); shutdownErr != nil {
		log.Warnf("HTTP shutdown: %v", shutdownErr)
	}
	if hubErr := relay.Hub().Shutdown(shutdownTimeout); hubErr != nil {
		log.Warnf("Hub shutdown: %v", hubErr)
	}

	return code, err
}
