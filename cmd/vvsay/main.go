package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/iabetor/vvsay/internal/audio"
	"github.com/iabetor/vvsay/internal/config"
	"github.com/iabetor/vvsay/internal/logger"
	"github.com/iabetor/vvsay/internal/pipeline"
	"github.com/iabetor/vvsay/internal/voicevox"
)

func main() {
	configPath := flag.String("config", "configs/vvsay.yaml", "配置文件路径（不存在时使用默认配置）")
	listDevices := flag.Bool("devices", false, "列出输出设备后退出")
	listSpeakers := flag.Bool("speakers", false, "列出 VOICEVOX 话者后退出")
	outPath := flag.String("out", "", "同时把合成的音频保存为 WAV 文件")
	flag.Parse()

	// .env 中的变量用于展开配置文件里的 ${VAR}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "加载 .env 失败: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	runID := uuid.NewString()
	logger.With("run", runID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *listDevices:
		err = printDevices(cfg)
	case *listSpeakers:
		err = printSpeakers(ctx, cfg)
	default:
		err = speak(ctx, cfg, runID, os.Stdin, *outPath)
	}
	if err != nil {
		logger.Errorf("[main] %v", err)
		logger.Sync()
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func speak(ctx context.Context, cfg *config.Config, runID string, in io.Reader, outPath string) error {
	// 先确定输出设备，设备不存在时在读取输入和访问网络之前失败
	p, err := pipeline.FromConfig(cfg, runID)
	if err != nil {
		return err
	}
	defer p.Close()

	text, err := readLine(in, cfg.Prompt)
	if err != nil {
		return fmt.Errorf("读取输入失败: %w", err)
	}

	start := time.Now()
	buf, err := p.Speak(ctx, text)
	if err != nil {
		return err
	}
	logger.Infof("[main] 播放完成，音频 %s，用时 %s", buf.Duration(), time.Since(start).Round(time.Millisecond))

	if outPath != "" {
		if err := saveWAV(outPath, buf); err != nil {
			return err
		}
		logger.Infof("[main] 已保存到 %s", outPath)
	}
	return nil
}

// readLine 打印提示语并读取一行输入，去掉行尾换行。
func readLine(in io.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func saveWAV(path string, buf *audio.Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}
	if err := audio.EncodeWAV(f, buf, 16); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printDevices(cfg *config.Config) error {
	backend, err := audio.OpenBackend(cfg.Audio.Driver, cfg.Audio.Backends)
	if err != nil {
		return err
	}
	defer backend.Close()
	return audio.ListDevices(os.Stdout, backend)
}

func printSpeakers(ctx context.Context, cfg *config.Config) error {
	client, err := voicevox.NewClient(cfg.VoiceVox.BaseURL,
		voicevox.WithTimeout(time.Duration(cfg.VoiceVox.Timeout)*time.Second))
	if err != nil {
		return err
	}
	version, err := client.Version(ctx)
	if err != nil {
		return err
	}
	speakers, err := client.Speakers(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("VOICEVOX %s\n", version)
	if sp, st, ok := voicevox.FindStyle(speakers, cfg.VoiceVox.SpeakerID()); ok {
		fmt.Printf("当前话者: %d %s（%s）\n", cfg.VoiceVox.SpeakerID(), sp.Name, st.Name)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSPEAKER\tSTYLE")
	for _, sp := range speakers {
		for _, st := range sp.Styles {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", st.ID, sp.Name, st.Name)
		}
	}
	return tw.Flush()
}
