package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styling
var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#0a84ff")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#30d158")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#ff453a")).
			Padding(0, 1)
)

var dateFilters = []string{"day", "week", "month", "all"}

// statusKeys maps order view keys to the status they set
var statusKeys = map[string]string{
	"p": "preparing",
	"y": "ready",
	"d": "delivered",
	"x": "cancelled",
}

// paymentKeys maps order view keys to payment methods
var paymentKeys = map[string]string{
	"1": "cash",
	"2": "card",
	"3": "upi",
}

// Model defines the application state
type Model struct {
	mainMenu    list.Model
	orderTable  table.Model
	phoneInput  textinput.Model
	passInput   textinput.Model
	spinner     spinner.Model
	client      *ApiClient
	orders      []Order
	orderDetail Order
	stats       *Stats
	filter      int
	loading     bool
	currentView string
	error       string
	notice      string
}

// item represents a list item
type item struct {
	title, desc string
}

// FilterValue implements list.Item interface
func (i item) FilterValue() string { return i.title }

// Title implements list.Item interface
func (i item) Title() string { return i.title }

// Description implements list.Item interface
func (i item) Description() string { return i.desc }

// Initialize the model
func initialModel() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	items := []list.Item{
		item{title: "Orders", desc: "Live orders and status updates"},
		item{title: "Accountance", desc: "Revenue by payment method"},
		item{title: "Exit", desc: "Exit the application"},
	}
	mainMenu := list.New(items, list.NewDefaultDelegate(), 40, 14)
	mainMenu.Title = "Tableside Console"

	columns := []table.Column{
		{Title: "Seq", Width: 6},
		{Title: "Table", Width: 6},
		{Title: "Status", Width: 11},
		{Title: "Total", Width: 10},
		{Title: "Payment", Width: 10},
		{Title: "Age", Width: 8},
	}
	orderTable := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	phone := textinput.New()
	phone.Placeholder = "Phone number"
	phone.CharLimit = 10
	phone.Width = 20
	phone.Focus()

	pass := textinput.New()
	pass.Placeholder = "Password"
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'
	pass.Width = 20

	return Model{
		mainMenu:    mainMenu,
		orderTable:  orderTable,
		phoneInput:  phone,
		passInput:   pass,
		spinner:     s,
		client:      NewApiClient(),
		currentView: "login",
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, tea.EnterAltScreen)
}

// Update handles UI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.currentView == "login" {
			return m.updateLogin(msg)
		}
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case loggedInMsg:
		m.loading = false
		m.error = ""
		m.currentView = "main"
		return m, nil
	case ordersMsg:
		m.loading = false
		m.orders = msg.orders
		m.orderTable.SetRows(orderRows(msg.orders, time.Now()))
		return m, nil
	case statsMsg:
		m.loading = false
		m.stats = msg.stats
		return m, nil
	case errorMsg:
		m.loading = false
		m.error = msg.err
		return m, nil
	case confirmMsg:
		m.error = ""
		m.notice = msg.message
		return m, fetchOrders(m.client)
	}

	var cmd tea.Cmd
	switch m.currentView {
	case "main":
		m.mainMenu, cmd = m.mainMenu.Update(msg)
	case "orders":
		m.orderTable, cmd = m.orderTable.Update(msg)
	}
	return m, cmd
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		if m.phoneInput.Focused() {
			m.phoneInput.Blur()
			m.passInput.Focus()
		} else {
			m.passInput.Blur()
			m.phoneInput.Focus()
		}
		return m, nil
	case "enter":
		if m.phoneInput.Value() == "" || m.passInput.Value() == "" {
			m.error = "Enter phone number and password"
			return m, nil
		}
		m.loading = true
		return m, login(m.client, m.phoneInput.Value(), m.passInput.Value())
	}

	var cmd tea.Cmd
	if m.phoneInput.Focused() {
		m.phoneInput, cmd = m.phoneInput.Update(msg)
	} else {
		m.passInput, cmd = m.passInput.Update(msg)
	}
	return m, cmd
}

// handleKey processes keys outside the login screen. The boolean reports
// whether the key was consumed.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	key := msg.String()
	switch m.currentView {
	case "main":
		switch key {
		case "q":
			return m, tea.Quit, true
		case "enter":
			selected, ok := m.mainMenu.SelectedItem().(item)
			if !ok {
				return m, nil, true
			}
			switch selected.title {
			case "Exit":
				return m, tea.Quit, true
			case "Orders":
				m.currentView = "orders"
				m.loading = true
				return m, fetchOrders(m.client), true
			case "Accountance":
				m.currentView = "accountance"
				m.loading = true
				return m, fetchStats(m.client, dateFilters[m.filter]), true
			}
		}
	case "orders":
		switch key {
		case "esc":
			m.currentView = "main"
			return m, nil, true
		case "r":
			m.loading = true
			return m, fetchOrders(m.client), true
		case "enter":
			if o, ok := m.selectedOrder(); ok {
				m.orderDetail = o
				m.currentView = "order_detail"
			}
			return m, nil, true
		}
		if status, ok := statusKeys[key]; ok {
			if o, ok := m.selectedOrder(); ok {
				return m, setStatus(m.client, o.ID, status), true
			}
			return m, nil, true
		}
		if method, ok := paymentKeys[key]; ok {
			if o, ok := m.selectedOrder(); ok {
				return m, recordPayment(m.client, o.ID, method), true
			}
			return m, nil, true
		}
	case "order_detail":
		if key == "esc" || key == "enter" {
			m.currentView = "orders"
			return m, nil, true
		}
	case "accountance":
		switch key {
		case "esc":
			m.currentView = "main"
			return m, nil, true
		case "tab":
			m.filter = (m.filter + 1) % len(dateFilters)
			m.loading = true
			return m, fetchStats(m.client, dateFilters[m.filter]), true
		}
	}
	return m, nil, false
}

func (m Model) selectedOrder() (Order, bool) {
	i := m.orderTable.Cursor()
	if i < 0 || i >= len(m.orders) {
		return Order{}, false
	}
	return m.orders[i], true
}

// View renders the UI
func (m Model) View() string {
	var b strings.Builder
	switch m.currentView {
	case "login":
		b.WriteString(titleStyle.Render("Staff Login") + "\n\n")
		b.WriteString(m.phoneInput.View() + "\n")
		b.WriteString(m.passInput.View() + "\n\n")
		b.WriteString("tab to switch fields, enter to sign in\n")
	case "main":
		b.WriteString(m.mainMenu.View() + "\n")
		b.WriteString(infoStyle.Render(fmt.Sprintf("%s (%s)", m.client.Staff.Name, m.client.Staff.Role)) + "\n")
	case "orders":
		b.WriteString(titleStyle.Render("Orders") + "\n\n")
		b.WriteString(m.orderTable.View() + "\n\n")
		b.WriteString("p preparing · y ready · d delivered · x cancel · 1/2/3 paid cash/card/upi\n")
		b.WriteString("enter details · r refresh · esc back\n")
	case "order_detail":
		b.WriteString(orderDetailView(m.orderDetail))
	case "accountance":
		b.WriteString(titleStyle.Render("Accountance: "+dateFilters[m.filter]) + "\n\n")
		if m.stats != nil {
			b.WriteString(statsView(*m.stats))
		}
		b.WriteString("\ntab next window · esc back\n")
	default:
		return "Loading..."
	}

	if m.loading {
		b.WriteString("\n" + m.spinner.View() + " loading\n")
	}
	if m.notice != "" && m.error == "" {
		b.WriteString("\n" + successStyle.Render(m.notice) + "\n")
	}
	if m.error != "" {
		b.WriteString("\n" + errorStyle.Render(m.error) + "\n")
	}
	return docStyle.Render(b.String())
}

// Custom message types for the tea.Model
type loggedInMsg struct{}

type ordersMsg struct {
	orders []Order
}

type statsMsg struct {
	stats *Stats
}

type errorMsg struct {
	err string
}

type confirmMsg struct {
	message string
}

func login(client *ApiClient, phone, password string) tea.Cmd {
	return func() tea.Msg {
		if err := client.Login(phone, password); err != nil {
			return errorMsg{err: fmt.Sprintf("Login failed: %v", err)}
		}
		return loggedInMsg{}
	}
}

// fetchOrders retrieves orders from the API
func fetchOrders(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		orders, err := client.GetOrders()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching orders: %v", err)}
		}
		return ordersMsg{orders: orders}
	}
}

func fetchStats(client *ApiClient, filter string) tea.Cmd {
	return func() tea.Msg {
		stats, err := client.Accountance(filter)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching accountance: %v", err)}
		}
		return statsMsg{stats: stats}
	}
}

func setStatus(client *ApiClient, id, status string) tea.Cmd {
	return func() tea.Msg {
		message, err := client.SetStatus(id, status)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error updating order: %v", err)}
		}
		return confirmMsg{message: message}
	}
}

func recordPayment(client *ApiClient, id, method string) tea.Cmd {
	return func() tea.Msg {
		if err := client.RecordPayment(id, method); err != nil {
			return errorMsg{err: fmt.Sprintf("Error recording payment: %v", err)}
		}
		return confirmMsg{message: "Payment recorded (" + method + ")"}
	}
}

// charged is what the customer pays after any coupon
func charged(o Order) float64 {
	if o.DiscountedAmount != nil && *o.DiscountedAmount < o.TotalAmount {
		return *o.DiscountedAmount
	}
	return o.TotalAmount
}

// orderRows converts API orders to table rows
func orderRows(orders []Order, now time.Time) []table.Row {
	rows := make([]table.Row, len(orders))
	for i, o := range orders {
		payment := o.PaymentStatus
		if o.PaymentMethod != "" {
			payment = o.PaymentMethod
		}
		rows[i] = table.Row{
			fmt.Sprintf("#%03d", o.SequenceNumber),
			fmt.Sprintf("%d", o.TableNumber),
			o.Status,
			fmt.Sprintf("%.2f", charged(o)),
			payment,
			now.Sub(o.CreatedAt).Truncate(time.Minute).String(),
		}
	}
	return rows
}

// orderDetailView creates a detailed view of an order
func orderDetailView(o Order) string {
	view := titleStyle.Render(fmt.Sprintf("Order #%03d · Table %d", o.SequenceNumber, o.TableNumber)) + "\n\n"
	view += fmt.Sprintf("Status: %s\n", o.Status)
	view += fmt.Sprintf("Payment: %s %s\n", o.PaymentStatus, o.PaymentMethod)
	view += fmt.Sprintf("Placed: %s\n", o.CreatedAt.Format(time.RFC1123))

	view += "\nItems:\n"
	for i, it := range o.Items {
		name := it.Name
		if name == "" {
			name = it.FoodItem
		}
		view += fmt.Sprintf("%d. %s x%d @ %.2f = %.2f\n", i+1, name, it.Quantity, it.Price, float64(it.Quantity)*it.Price)
	}
	view += fmt.Sprintf("\nTotal: %.2f\n", o.TotalAmount)
	if o.AppliedCoupon != nil && o.DiscountedAmount != nil {
		view += fmt.Sprintf("Coupon %s: pay %.2f\n", *o.AppliedCoupon, *o.DiscountedAmount)
	}

	view += "\nHistory:\n"
	for _, c := range o.Comments {
		view += fmt.Sprintf("%s [%s] %s\n", c.Timestamp.Format("15:04"), c.Status, c.Text)
	}
	view += "\nPress 'esc' to go back"
	return view
}

func statsView(s Stats) string {
	view := fmt.Sprintf("Orders: %d (pending %d, completed %d)\n", s.TotalOrders, s.PendingOrders, s.CompletedOrders)
	view += fmt.Sprintf("Total: %.2f\n\n", s.TotalAmount)
	view += fmt.Sprintf("Cash: %d orders, %.2f\n", s.CashOrders, s.CashAmount)
	view += fmt.Sprintf("UPI:  %d orders, %.2f\n", s.UPIOrders, s.UPIAmount)
	view += fmt.Sprintf("Card: %d orders, %.2f\n", s.CardOrders, s.CardAmount)
	view += "\n" + successStyle.Render(fmt.Sprintf("Today's revenue: %.2f", s.DailyRevenue)) + "\n"
	return view
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v", err)
		os.Exit(1)
	}
}
