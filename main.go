/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/killallgit/podcast-player/cmd"

// @title           Podcast Player API
// @version         1.0.0
// @description     Backend for the podcast player: audio proxying, play counts and subscription lookups
// @contact.name    API Support
// @contact.url     https://github.com/killallgit/podcast-player
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:8080
// @BasePath        /
// @schemes         http https
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Supabase access token as "Bearer <token>"
func main() {
	cmd.Execute()
}
