package controller

import (
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())
	mux.OnError(c.handleWSError)

	wsrouter.Handle(mux, "ALIVE", c.handleAlive)

	// participant
	wsrouter.Handle(mux, "JOIN_ROOM", c.handleJoinRoom)
	wsrouter.Handle(mux, "LEAVE_ROOM", c.handleLeaveRoom)
	wsrouter.Handle(mux, "TOGGLE_READY", c.handleToggleReady)

	// playback
	wsrouter.Handle(mux, "UPDATE_VIDEO_STATE", c.handleUpdateVideoState)
	wsrouter.Handle(mux, "SEEK_VIDEO", c.handleSeekVideo)
	wsrouter.Handle(mux, "TRANSFER_HOST", c.handleTransferHost)

	// chat
	wsrouter.Handle(mux, "SEND_MESSAGE", c.handleSendMessage)

	return mux
}
