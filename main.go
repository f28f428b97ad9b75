package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deemkeen/minipub/activitypub"
	"github.com/deemkeen/minipub/db"
	"github.com/deemkeen/minipub/util"
	"github.com/deemkeen/minipub/web"
)

func main() {

	conf, err := util.ReadConf()
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Println("Configuration: ")
	fmt.Println(util.PrettyPrint(conf))

	store, err := db.Open(conf.Conf.DbPath)
	if err != nil {
		log.Fatalln(err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		log.Fatalln(err)
	}
	log.Println("Database migrations complete")

	deliverer := activitypub.NewDeliverer(conf)
	service := activitypub.NewService(conf, store)
	processor := activitypub.NewProcessor(store, store, deliverer)
	outbox := activitypub.NewOutbox(conf, deliverer)

	handlers := web.NewHandlers(conf, store, service, processor, outbox)
	router := web.NewRouter(conf, handlers)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.Conf.Host, conf.Conf.HttpPort),
		Handler: router,
	}

	startServing(srv, conf)
}

func startServing(srv *http.Server, conf *util.AppConfig) {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("Starting server on %s:%d", conf.Conf.Host, conf.Conf.HttpPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalln(err)
		}
	}()

	<-done
	log.Println("Stopping server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer func() { cancel() }()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalln(err)
	}
}
