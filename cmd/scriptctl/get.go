// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/diffeo/go-scripted/restclient"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var getCommand = cli.Command{
	Name:      "get",
	Usage:     "fetch a page from a running server",
	ArgsUsage: "[NAME]",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "url",
			Value: "http://localhost:5980/",
			Usage: "base URL of the server",
		},
		cli.StringFlag{
			Name:  "accept",
			Usage: "Accept header to send",
		},
		cli.StringFlag{
			Name:  "language",
			Usage: "Accept-Language header to send",
		},
		cli.StringSliceFlag{
			Name:  "param, p",
			Usage: "query parameter as name=value",
		},
	},
	Action: func(c *cli.Context) error {
		client, err := restclient.New(c.String("url"))
		if err != nil {
			return err
		}
		params, err := parseParams(c.StringSlice("param"))
		if err != nil {
			return err
		}
		request := restclient.Request{
			Name:           c.Args().First(),
			Accept:         c.String("accept"),
			AcceptLanguage: c.String("language"),
			Params:         make(url.Values),
		}
		for name, value := range params {
			request.Params.Set(name, value)
		}
		page, err := client.Do(context.Background(), request)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"content-type": page.ContentType,
			"etag":         page.ETag,
			"request-id":   page.RequestID,
		}).Debug("Fetched page")
		_, err = fmt.Fprint(os.Stdout, page.Text)
		return err
	},
}
