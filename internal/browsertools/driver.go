// Package browsertools implements the built-in tool server's browser
// side: a Playwright-driven page plus the DOM snapshot used to expose
// interactive elements to the model by numeric id.
package browsertools

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// Driver owns one Playwright browser and one page.
type Driver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
}

func NewDriver(headless bool) (*Driver, error) {
	if err := playwright.Install(); err != nil {
		return nil, fmt.Errorf("install playwright driver: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	page, err := browser.NewPage(playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{Width: 1280, Height: 720},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("open page: %w", err)
	}
	page.SetDefaultTimeout(15000)
	page.SetDefaultNavigationTimeout(30000)

	return &Driver{pw: pw, browser: browser, page: page}, nil
}

func (d *Driver) Navigate(url string) error {
	if _, err := d.page.Goto(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	d.waitSettled()
	return nil
}

func (d *Driver) Click(elementID string) error {
	selector := aiSelector(elementID)
	if err := d.page.Locator(selector).First().ScrollIntoViewIfNeeded(); err != nil {
		return fmt.Errorf("element %s not reachable: %w", elementID, err)
	}
	if err := d.page.Click(selector); err != nil {
		return fmt.Errorf("click element %s: %w", elementID, err)
	}
	d.waitSettled()
	return nil
}

// Type fills an input and optionally presses Enter, which is the
// reliable way to submit search boxes.
func (d *Driver) Type(elementID, text string, submit bool) error {
	selector := aiSelector(elementID)
	if err := d.page.Fill(selector, text); err != nil {
		return fmt.Errorf("type into element %s: %w", elementID, err)
	}
	if submit {
		if err := d.page.Press(selector, "Enter"); err != nil {
			return fmt.Errorf("submit element %s: %w", elementID, err)
		}
		d.waitSettled()
	}
	return nil
}

// Screenshot returns the current viewport as JPEG bytes.
func (d *Driver) Screenshot() ([]byte, error) {
	buf, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(false),
		Type:     playwright.ScreenshotTypeJpeg,
		Quality:  playwright.Int(70),
	})
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

func (d *Driver) URL() string {
	return d.page.URL()
}

func (d *Driver) waitSettled() {
	state := playwright.LoadStateNetworkidle
	_ = d.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{State: state})
}

func (d *Driver) Close() {
	if d.browser != nil {
		_ = d.browser.Close()
	}
	if d.pw != nil {
		_ = d.pw.Stop()
	}
}

func aiSelector(elementID string) string {
	return fmt.Sprintf("[data-ai-id='%s']", elementID)
}
