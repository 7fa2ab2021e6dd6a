package server

import (
	"fmt"
	"regexp"

	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

// MinifyPage minifies an HTML page including its inline styles and scripts.
func MinifyPage(raw []byte) ([]byte, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)

	out, err := m.Bytes("text/html", raw)
	if err != nil {
		return nil, errors.Wrap(err, "minify monitor page")
	}
	return out, nil
}

// MonitorURL is the address a browser should open for listen address addr.
func MonitorURL(host string, port int) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d/", host, port)
}

// QRCode renders url as a QR code made of terminal block characters.
func QRCode(url string) (string, error) {
	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return "", errors.Wrap(err, "qr code")
	}
	return qr.ToSmallString(false), nil
}
