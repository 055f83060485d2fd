package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           QuickBid Engine API
// @version         0.1.0
// @description     Bid acceptance, live stats, seller risk, commission and settlement.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
