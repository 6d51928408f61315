package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/iudanet/productreviews/internal/server/metrics"
	"github.com/iudanet/productreviews/internal/server/response"
)

// VersionHeader заголовок, в котором клиент передает версию API
const VersionHeader = "x-version"

// RouteNotFoundMessage ответ обработчика по умолчанию для несовпавшей версии
const RouteNotFoundMessage = "Route not found"

// canonicalVersion приводит версию к виду, понятному semver ("v" + версия).
// Допускается один ведущий "=" или "v". Сокращения вида "1" и "1.0" некорректны.
// Пустая строка означает некорректную версию.
func canonicalVersion(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "=")
	if v == "" {
		return ""
	}
	if v[0] != 'v' {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	// semver.IsValid принимает "v1" и "v1.0", требуем полную тройку
	if strings.TrimSuffix(v, semver.Build(v)) != semver.Canonical(v) {
		return ""
	}
	return v
}

// VersionMatches сравнивает версии по semver: "1.0.0", "v1.0.0" и "1.0.0+build" равны.
// Некорректные версии никогда не совпадают.
func VersionMatches(got, required string) bool {
	g, r := canonicalVersion(got), canonicalVersion(required)
	if g == "" || r == "" {
		return false
	}
	return semver.Compare(g, r) == 0
}

// NotFoundHandler отвечает 404 "Route not found"
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = response.Message(w, http.StatusNotFound, RouteNotFoundMessage)
	})
}

// Versioning пропускает запрос дальше только если заголовок x-version совпадает с required.
// Иначе запрос обрабатывает fallback (nil означает NotFoundHandler).
func Versioning(required string, fallback http.Handler, m *metrics.Metrics) func(http.Handler) http.Handler {
	if fallback == nil {
		fallback = NotFoundHandler()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !VersionMatches(r.Header.Get(VersionHeader), required) {
				m.VersionFallback(required)
				fallback.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
