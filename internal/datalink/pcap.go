package datalink

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/flightpath/internal/monitoring"
)

// pcapngMagic is the section header block type that opens a pcapng file.
var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

func newPacketReader(r io.Reader) (packetReader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("read capture header: %w", err)
	}
	if bytes.Equal(magic, pcapngMagic) {
		return pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	}
	return pcapgo.NewReader(br)
}

// ReadPcap extracts datalogger lines from the UDP payloads of a pcap or
// pcapng capture. Only datagrams sent to udpPort are used unless udpPort
// is zero. A line may span datagrams; a trailing unterminated line is
// returned as well.
func ReadPcap(r io.Reader, udpPort int) ([]string, error) {
	src, err := newPacketReader(r)
	if err != nil {
		return nil, err
	}

	var (
		lines   []string
		pending []byte
		packets int
		matched int
	)
	for {
		data, _, err := src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read packet %d: %w", packets+1, err)
		}
		packets++

		packet := gopacket.NewPacket(data, src.LinkType(), gopacket.Default)
		udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok {
			continue
		}
		if udpPort > 0 && int(udp.DstPort) != udpPort {
			continue
		}
		if len(udp.Payload) == 0 {
			continue
		}
		matched++

		pending = append(pending, udp.Payload...)
		for {
			i := bytes.IndexByte(pending, '\n')
			if i < 0 {
				break
			}
			lines = append(lines, strings.TrimRight(string(pending[:i]), "\r"))
			pending = pending[i+1:]
		}
	}
	if rest := strings.TrimSpace(string(pending)); rest != "" {
		lines = append(lines, rest)
	}

	monitoring.Debug("pcap replay: %d packets, %d matched udp port %d, %d lines", packets, matched, udpPort, len(lines))
	return lines, nil
}
