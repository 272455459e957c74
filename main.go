package main

import (
	"fmt"
	"log"

	"github.com/Speshl/gorrc_drive/internal/app"
	"github.com/Speshl/gorrc_drive/internal/config"
	socketio "github.com/googollee/go-socket.io"
)

func main() {
	cfg := config.GetConfig()

	socketURI := fmt.Sprintf("http://%s", cfg.ServerCfg.Server)
	client, err := socketio.NewClient(socketURI, nil)
	if err != nil {
		err = fmt.Errorf("error creating client - %w", err)
		panic(err)
	}

	app, err := app.NewApp(cfg, client)
	if err != nil {
		err = fmt.Errorf("error creating app - %w", err)
		panic(err)
	}

	err = app.RegisterHandlers()
	if err != nil {
		log.Printf("failed registering handlers: %s", err.Error())
		if err := app.Close(); err != nil {
			log.Printf("failed closing app: %s", err.Error())
		}
		return
	}

	err = app.Start()
	if err != nil {
		log.Printf("client shutdown with error: %s", err.Error())
	} else {
		log.Println("client shutdown successfully")
	}
}
