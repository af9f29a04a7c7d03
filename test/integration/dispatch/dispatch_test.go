// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package dispatch_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/hooks/internal/luahooks"
	"github.com/holomush/hooks/internal/observability"
	"github.com/holomush/hooks/internal/scenario"
	"github.com/holomush/hooks/pkg/hooks"
)

func scrape(addr string) string {
	resp, err := http.Get("http://" + addr + "/metrics")
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return string(body)
}

var _ = Describe("Dispatch with metrics exposed", func() {
	var server *observability.Server

	BeforeEach(func() {
		server = observability.NewServer("127.0.0.1:0", nil)
		_, err := server.Start()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(server.Stop(ctx)).To(Succeed())
	})

	It("counts successful and failing calls by hook name", func() {
		d := hooks.New()
		d.RegisterFunc("integration.ok", func(...any) error { return nil })
		d.Before("integration.fail", func(...any) error { return io.ErrUnexpectedEOF })

		Expect(d.Call("integration.ok")).To(Succeed())
		Expect(d.Call("integration.fail")).To(HaveOccurred())

		body := scrape(server.Addr())
		Expect(body).To(ContainSubstring(`hooks_calls_total{hook="integration.ok",status="success"}`))
		Expect(body).To(ContainSubstring(`hooks_calls_total{hook="integration.fail",status="error"}`))
		Expect(body).To(ContainSubstring(`hooks_call_duration_seconds_bucket{hook="integration.ok"`))
	})

	It("counts rejected redirects", func() {
		d := hooks.New()
		Expect(d.Redirect("integration.x", "integration.y")).To(Succeed())
		Expect(d.Redirect("integration.y", "integration.x")).To(HaveOccurred())

		Expect(scrape(server.Addr())).To(MatchRegexp(`hooks_redirects_rejected_total [1-9]`))
	})
})

var _ = Describe("Lua scripts and scenarios against one dispatcher", func() {
	It("lets a scenario-built dispatcher be driven from Lua", func() {
		d := hooks.New()
		var out bytes.Buffer
		rt, err := luahooks.New(context.Background(), d, luahooks.WithOutput(&out))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(rt.Close)

		_, reg := d.RegisterFunc("doc.save", func(args ...any) error {
			out.WriteString("go:" + args[0].(string) + "\n")
			return nil
		})
		Expect(reg.Active()).To(BeTrue())

		Expect(rt.DoString(`
hooks.redirect("doc.store", "doc.save")
hooks.register("doc.store", function(id) print("lua:" .. id) end)
hooks.call("doc.save", "42")
`)).To(Succeed())

		Expect(strings.Split(strings.TrimSpace(out.String()), "\n")).To(Equal([]string{"go:42", "lua:42"}))
	})

	It("runs a scenario whose expectations hold", func() {
		s, err := scenario.Parse([]byte(`version: 1.0.0
before_each: [each]
handlers:
  - {name: boot, label: init, once: true}
calls:
  - {name: boot}
  - {name: boot}
expect: [each, init, each]
`))
		Expect(err).NotTo(HaveOccurred())

		trace, err := scenario.Run(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		Expect(trace.Errors).To(BeEmpty())
		Expect(trace.Steps).To(HaveLen(3))
	})
})
