package main

import (
	sealroom "sealroom/app"
)

func main() {
	app := sealroom.New(nil, nil)
	app.Start()
}
