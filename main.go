package main

import (
	"github.com/TalhaJubaerPrantor/neoblood-backend/startup"
	"github.com/TalhaJubaerPrantor/neoblood-backend/startup/config"
)

func main() {
	cfg := config.NewConfig()
	server := startup.NewServer(cfg)
	server.Start()

}
