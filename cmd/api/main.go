package main

import (
	"log"

	"ttindex/cmd"
	"ttindex/internal/config"
	l1_service "ttindex/internal/service/l1"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		log.Fatal(err)
	}
	apiHandler, err := cmd.NewApiHandler(env, l1_service.DefaultSolverOptions())
	if err != nil {
		log.Fatal(err)
	}
	defer cmd.CloseDependencies(apiHandler)

	err = apiHandler.StartApi(env.Port)
	if err != nil {
		log.Fatal(err)
	}
}
