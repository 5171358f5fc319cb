package main

import (
	"flag"

	rtmp "github.com/rtmpbroker/broker"
	"github.com/rtmpbroker/broker/config"
	"github.com/rtmpbroker/broker/transport"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "optional YAML file with addr/dev settings")
	addr := flag.String("addr", "", "address to listen on (overrides config file)")
	dev := flag.Bool("dev", false, "use a development logger (human-readable, debug level)")
	flag.Parse()

	file := &config.File{}
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			panic(err)
		}
		file = loaded
	}
	if *addr != "" {
		file.Addr = *addr
	}
	if file.Addr == "" {
		file.Addr = ":" + config.DefaultPort
	}
	if *dev {
		file.Dev = true
	}

	var logger *zap.Logger
	var err error
	if file.Dev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	server := &transport.Server{
		Addr:   file.Addr,
		Logger: logger,
		Core:   rtmp.NewCore(logger),
	}

	logger.Fatal("server exited", zap.Error(server.Listen()))
}
