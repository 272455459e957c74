package app

import (
	"log"

	"github.com/Speshl/gorrc_drive/internal/models"
	"github.com/Speshl/gorrc_drive/internal/telemetry"
	socketio "github.com/googollee/go-socket.io"
)

func (a *App) onDrive(socketConn socketio.Conn, msg string) {
	req := models.DriveRequest{}
	err := telemetry.Decode(msg, &req)
	if err != nil {
		log.Printf("drive request failed unmarshaling: %s - msg - %s\n", err.Error(), msg)
		return
	}
	a.controls.Update(req)
}

func (a *App) onRegisterSuccess(socketConn socketio.Conn, msg string) {
	log.Printf("car registered: %s\n", msg)
}
