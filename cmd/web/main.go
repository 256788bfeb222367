package main

import "acervo_backend/internal/app"

func main() {
	app.Run()
}
