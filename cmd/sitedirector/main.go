package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Ares7/DIRAC/internal/common"
	"github.com/Ares7/DIRAC/internal/sitedirector"
	"github.com/Ares7/DIRAC/internal/sitedirector/configuration"
	"github.com/Ares7/DIRAC/internal/sitedirector/fake"
)

const CustomConfigLocation string = "config"

func init() {
	pflag.String(CustomConfigLocation, "", "Fully qualified path to application configuration file")
	pflag.Bool("fakeGrid", false, "Run against in-process fake grid collaborators")
	pflag.Parse()
}

func main() {
	common.ConfigureLogging()
	common.BindCommandlineArguments()

	var config configuration.SiteDirectorConfiguration
	userSpecifiedConfig := viper.GetString(CustomConfigLocation)
	common.LoadConfig(&config, "./config/sitedirector", userSpecifiedConfig)

	log.Info("Starting site director...")

	shutdownMetricServer := common.ServeMetrics(config.MetricsPort)
	defer shutdownMetricServer()

	// Real deployments plug RPC clients for the matcher, pilot store, site
	// mask, credential provider and queue enumeration here; the fake grid
	// keeps the agent runnable on its own.
	if !viper.GetBool("fakeGrid") {
		log.Error("No grid collaborators configured, run with --fakeGrid for a dry run")
		os.Exit(-1)
	}
	collaborators := fake.GridCollaborators()

	shutdown := sitedirector.StartUp(config, collaborators)
	defer shutdown()

	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
	<-stopSignal
}
