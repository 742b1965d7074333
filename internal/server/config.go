package server

import (
	"strconv"
	"time"

	"github.com/OFFIS-RIT/tabula-web/backend/internal/util"
)

type Config struct {
	Port        string
	CORSOrigins []string
	// MaxUploadBytes bounds the decoded size of an uploaded PDF.
	MaxUploadBytes int64
	TempDir        string

	JavaBin           string
	TabulaJar         string
	EngineTimeout     time.Duration
	EngineMaxParallel int64

	PdftoppmBin string
	RenderDPI   int

	// RateLimitRPS is the per client request rate. Zero disables limiting.
	RateLimitRPS float64
}

func LoadConfig() Config {
	return Config{
		Port:           util.GetEnvString("PORT", "8000"),
		CORSOrigins:    util.GetEnvList("CORS_ORIGINS", []string{"*"}),
		MaxUploadBytes: int64(util.GetEnvNumeric("MAX_UPLOAD_BYTES", 10*1024*1024)),
		TempDir:        util.GetEnv("TEMP_DIR"),

		JavaBin:           util.GetEnvString("JAVA_BIN", "java"),
		TabulaJar:         util.GetEnvString("TABULA_JAR", "/opt/tabula/tabula.jar"),
		EngineTimeout:     time.Duration(util.GetEnvNumeric("ENGINE_TIMEOUT_SECONDS", 120) * float64(time.Second)),
		EngineMaxParallel: int64(util.GetEnvNumeric("ENGINE_MAX_PARALLEL", 4)),

		PdftoppmBin: util.GetEnvString("PDFTOPPM_BIN", "pdftoppm"),
		RenderDPI:   int(util.GetEnvNumeric("RENDER_DPI", 150)),

		RateLimitRPS: util.GetEnvNumeric("RATE_LIMIT_RPS", 0),
	}
}

// bodyLimit leaves room for form fields and multipart framing on top of the
// upload itself. Oversized files are rejected precisely by the handlers.
func (c Config) bodyLimit() string {
	return strconv.FormatInt(c.MaxUploadBytes+1024*1024, 10) + "B"
}
