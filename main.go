package main

import "pokequest/cmd"

// @title                       PokeQuest API
// @version                     1.0
// @description                 Authentification, sessions et administration des comptes PokeQuest.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cmd.Execute()
}
